package statecmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rzbill/stateflo/internal/changelog"
	"github.com/rzbill/stateflo/internal/eventlog"
	"github.com/rzbill/stateflo/internal/runtime"
	"github.com/rzbill/stateflo/internal/state"
)

func newChangelogCommand(g *globals) *cobra.Command {
	changelogCmd := &cobra.Command{Use: "changelog", Short: "Inspect and maintain changelogs"}
	changelogCmd.AddCommand(newChangelogDumpCommand(g), newChangelogCompactCommand(g))
	return changelogCmd
}

// withChangelog opens the runtime and the changelog of the target partition.
func (g *globals) withChangelog(t *target, fn func(rt *runtime.Runtime, l *eventlog.Log) error) error {
	rt, err := g.openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()
	l, err := rt.OpenChangelog(t.store, t.partition)
	if err != nil {
		return err
	}
	return fn(rt, l)
}

// changelogEntry renders one changelog record for printing.
func changelogEntry(it eventlog.Item) map[string]any {
	out := map[string]any{"offset": it.Seq, "tombstone": it.Tombstone}
	if cf, ok := it.Headers[state.HeaderColumnFamily]; ok {
		out["cf"] = cf
	}
	if len(it.Headers) > 0 {
		out["headers"] = it.Headers
	}
	decodedBytes(out, "key", it.Key)
	if !it.Tombstone {
		decodedBytes(out, "value", it.Value)
	}
	return out
}

// newChangelogDumpCommand constructs the `changelog dump` subcommand.
func newChangelogDumpCommand(g *globals) *cobra.Command {
	t := &target{}
	var (
		from   uint64
		limit  int
		filter string
		group  string
	)
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print changelog records of a partition",
		Long: "Print changelog records of a partition as JSON lines. With --group the dump\n" +
			"resumes after the group's cursor and advances it past the printed records.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := changelog.NewFilter(filter)
			if err != nil {
				return fmt.Errorf("invalid --filter: %w", err)
			}
			return g.withChangelog(t, func(_ *runtime.Runtime, l *eventlog.Log) error {
				start := from
				if group != "" {
					if cur, ok := l.GetCursor(group); ok && cur.Seq()+1 > start {
						start = cur.Seq() + 1
					}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				tok := eventlog.TokenFromSeq(start)
				printed := 0
				var last uint64
				for {
					if err := cmd.Context().Err(); err != nil {
						return err
					}
					items, next, err := l.Read(eventlog.ReadOptions{Start: tok, Limit: 256})
					if err != nil {
						return err
					}
					for _, it := range items {
						last = it.Seq
						if !f.Match(it) {
							continue
						}
						if err := enc.Encode(changelogEntry(it)); err != nil {
							return err
						}
						printed++
						if limit > 0 && printed >= limit {
							next = eventlog.Token{}
							break
						}
					}
					if next == (eventlog.Token{}) {
						break
					}
					tok = next
				}
				if group != "" && last > 0 {
					return l.CommitCursor(group, eventlog.TokenFromSeq(last))
				}
				return nil
			})
		},
	}
	bindTarget(dumpCmd, t)
	dumpCmd.Flags().Uint64Var(&from, "from", 0, "First offset to print (0 = earliest)")
	dumpCmd.Flags().IntVar(&limit, "limit", 0, "Stop after N printed records (0 = all)")
	dumpCmd.Flags().StringVar(&filter, "filter", "", "CEL filter over cf, key, value, json, tombstone, offset, processed_offset, headers")
	dumpCmd.Flags().StringVar(&group, "group", "", "Cursor group to resume from and advance")
	return dumpCmd
}

// newChangelogCompactCommand constructs the `changelog compact` subcommand.
func newChangelogCompactCommand(g *globals) *cobra.Command {
	t := &target{}
	compactCmd := &cobra.Command{
		Use:   "compact",
		Short: "Drop changelog records superseded by a later record for the same key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withChangelog(t, func(rt *runtime.Runtime, _ *eventlog.Log) error {
				n, err := rt.CompactChangelog(cmd.Context(), t.store, t.partition)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "deleted:", n)
				return nil
			})
		},
	}
	bindTarget(compactCmd, t)
	return compactCmd
}
