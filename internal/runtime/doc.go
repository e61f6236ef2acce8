// Package runtime wires the state backend, changelog database, store catalog
// and metrics into a single-node stateflo instance.
//
// Example:
//
//	opts, _ := runtime.OptionsFromConfig(config.Default())
//	rt, _ := runtime.Open(opts)
//	defer rt.Close()
//	h, _ := rt.OpenPartition("counts", 0)
//	_ = h.Update(ctx, state.Offset(42), func(tx *state.PartitionTransaction) error {
//		return tx.Set("user-1", 7, nil, state.DefaultColumnFamily)
//	})
package runtime
