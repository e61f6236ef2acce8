// Package state implements transactional access to a single state partition.
//
// A PartitionTransaction stages reads and writes for one partition in an
// in-memory UpdateCache. Reads are served from the cache first and fall back
// to the Partition on a miss; writes and deletes never touch the Partition
// until Flush. Prepare optionally mirrors every staged change to a changelog
// stream through a ChangelogProducer, stamping each record with the column
// family and the processed source offset so the partition can be rebuilt
// later. Flush commits the staged changes and the offsets in one atomic write.
//
// Lifecycle
//
//	STARTED --Prepare--> PREPARED --Flush--> COMPLETE
//	STARTED --Flush--------------------------> COMPLETE
//	STARTED|PREPARED --any failure--> FAILED
//
// A transaction is single-use and not safe for concurrent use. Typical use:
//
//	tx := state.NewPartitionTransaction(part, state.Options{Producer: producer})
//	st, _ := tx.AsState([]byte("user-42"))
//	var n int
//	_, _ = st.Get("count", &n)
//	_ = st.Set("count", n+1)
//	_ = tx.Prepare(ctx, processedOffset)
//	_ = tx.Flush(ctx, state.Offset(processedOffset), state.Offset(producer.Offset()))
package state
