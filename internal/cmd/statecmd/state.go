package statecmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rzbill/stateflo/internal/partition"
	"github.com/rzbill/stateflo/internal/runtime"
	"github.com/rzbill/stateflo/internal/state"
)

// target selects a store partition, a column family and an optional prefix.
type target struct {
	store     string
	partition int32
	cf        string
	prefix    string
}

func bindTarget(cmd *cobra.Command, t *target) {
	cmd.Flags().StringVarP(&t.store, "store", "s", "", "Store name")
	cmd.Flags().Int32VarP(&t.partition, "partition", "p", 0, "Partition number")
	cmd.Flags().StringVar(&t.cf, "cf", state.DefaultColumnFamily, "Column family")
	cmd.Flags().StringVar(&t.prefix, "prefix", "", "Key prefix (JSON string)")
	_ = cmd.MarkFlagRequired("store")
}

// view opens tx's state bound to the target prefix.
func (t *target) view(tx *state.PartitionTransaction) (*state.State, error) {
	if t.prefix == "" {
		return tx.AsState(nil)
	}
	return tx.AsState(t.prefix)
}

// withHandle opens the runtime and the target partition for the duration of fn.
func (g *globals) withHandle(t *target, fn func(rt *runtime.Runtime, h *partition.Handle) error) error {
	if err := partition.ValidateColumnFamily(t.cf); err != nil {
		return err
	}
	rt, err := g.openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()
	h, err := rt.OpenPartition(t.store, t.partition)
	if err != nil {
		return err
	}
	return fn(rt, h)
}

func newStateCommand(g *globals) *cobra.Command {
	stateCmd := &cobra.Command{Use: "state", Short: "Read and modify partition state"}
	stateCmd.AddCommand(
		newStateGetCommand(g),
		newStateSetCommand(g),
		newStateDeleteCommand(g),
		newStateScanCommand(g),
		newStateOffsetsCommand(g),
		newStateRecoverCommand(g),
		newStateStoresCommand(g),
	)
	return stateCmd
}

// newStateGetCommand constructs the `state get` subcommand.
func newStateGetCommand(g *globals) *cobra.Command {
	t := &target{}
	getCmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withHandle(t, func(_ *runtime.Runtime, h *partition.Handle) error {
				tx := h.Begin()
				prefix, err := prefixBytes(tx, t)
				if err != nil {
					return err
				}
				var raw json.RawMessage
				found, err := tx.Get(args[0], prefix, t.cf, &raw)
				if err != nil {
					return err
				}
				out := map[string]any{"key": args[0], "found": found}
				if found {
					out["value"] = raw
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			})
		},
	}
	bindTarget(getCmd, t)
	return getCmd
}

// prefixBytes returns the serialized target prefix, nil when unset.
func prefixBytes(tx *state.PartitionTransaction, t *target) ([]byte, error) {
	s, err := t.view(tx)
	if err != nil {
		return nil, err
	}
	return s.Prefix(), nil
}

// commitOffset returns the processed offset a CLI write is committed with: the
// flag value, or nil to keep the stored one when the flag is negative.
func commitOffset(flag int64) *int64 {
	if flag < 0 {
		return nil
	}
	return state.Offset(flag)
}

// newStateSetCommand constructs the `state set` subcommand.
func newStateSetCommand(g *globals) *cobra.Command {
	t := &target{}
	var processed int64
	setCmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store VALUE under KEY; VALUE is stored as JSON when it parses, else as a string",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withHandle(t, func(_ *runtime.Runtime, h *partition.Handle) error {
				err := h.Update(cmd.Context(), commitOffset(processed), func(tx *state.PartitionTransaction) error {
					s, err := t.view(tx)
					if err != nil {
						return err
					}
					return s.Set(args[0], parseValue(args[1]))
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
				return nil
			})
		},
	}
	bindTarget(setCmd, t)
	setCmd.Flags().Int64Var(&processed, "processed-offset", -1, "Processed offset to record (default: keep the current one)")
	return setCmd
}

// newStateDeleteCommand constructs the `state delete` subcommand.
func newStateDeleteCommand(g *globals) *cobra.Command {
	t := &target{}
	var processed int64
	deleteCmd := &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withHandle(t, func(_ *runtime.Runtime, h *partition.Handle) error {
				err := h.Update(cmd.Context(), commitOffset(processed), func(tx *state.PartitionTransaction) error {
					s, err := t.view(tx)
					if err != nil {
						return err
					}
					return s.Delete(args[0])
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
				return nil
			})
		},
	}
	bindTarget(deleteCmd, t)
	deleteCmd.Flags().Int64Var(&processed, "processed-offset", -1, "Processed offset to record (default: keep the current one)")
	return deleteCmd
}

// newStateScanCommand constructs the `state scan` subcommand.
func newStateScanCommand(g *globals) *cobra.Command {
	t := &target{}
	var limit int
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "List the keys of a column family, optionally under a prefix",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withHandle(t, func(_ *runtime.Runtime, h *partition.Handle) error {
				p, err := prefixBytes(h.Begin(), t)
				if err != nil {
					return err
				}
				var scanPrefix []byte
				if p != nil {
					scanPrefix = append(p, state.PrefixSeparator)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				n := 0
				err = h.Partition.Scan(cmd.Context(), t.cf, scanPrefix, func(key, value []byte) error {
					if limit > 0 && n >= limit {
						return errStopScan
					}
					n++
					return enc.Encode(decodedEntry(key, value))
				})
				if errors.Is(err, errStopScan) {
					return nil
				}
				return err
			})
		},
	}
	bindTarget(scanCmd, t)
	scanCmd.Flags().IntVar(&limit, "limit", 0, "Stop after N entries (0 = all)")
	return scanCmd
}

// newStateOffsetsCommand constructs the `state offsets` subcommand.
func newStateOffsetsCommand(g *globals) *cobra.Command {
	t := &target{}
	offsetsCmd := &cobra.Command{
		Use:   "offsets",
		Short: "Print the processed and changelog offsets of a partition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withHandle(t, func(rt *runtime.Runtime, h *partition.Handle) error {
				out := map[string]any{"store": t.store, "partition": t.partition}
				if off, ok, err := h.Partition.ProcessedOffset(); err != nil {
					return err
				} else if ok {
					out["processed_offset"] = off
				}
				if off, ok, err := h.Partition.ChangelogOffset(); err != nil {
					return err
				} else if ok {
					out["changelog_offset"] = off
				}
				l, err := rt.OpenChangelog(t.store, t.partition)
				if err != nil {
					return err
				}
				out["changelog_last"] = l.LastSeq()
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			})
		},
	}
	bindTarget(offsetsCmd, t)
	return offsetsCmd
}

// newStateRecoverCommand constructs the `state recover` subcommand.
func newStateRecoverCommand(g *globals) *cobra.Command {
	t := &target{}
	recoverCmd := &cobra.Command{
		Use:   "recover",
		Short: "Replay the changelog into the partition state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withHandle(t, func(rt *runtime.Runtime, _ *partition.Handle) error {
				n, err := rt.Recover(cmd.Context(), t.store, t.partition)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "applied:", n)
				return nil
			})
		},
	}
	bindTarget(recoverCmd, t)
	return recoverCmd
}

// newStateStoresCommand constructs the `state stores` subcommand.
func newStateStoresCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List the stores recorded in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := g.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			stores, err := rt.Stores()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, s := range stores {
				if err := enc.Encode(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
