// Package eventlog implements the append-only log that carries state
// changelogs.
//
// # Overview
//
// The log is partitioned by namespace/topic/partition and persisted in Pebble.
// Keys are lexicographically ordered for efficient range scans:
//   - ns/{ns}/log/{topic}/{part_be4}/m           (partition metadata: lastSeq)
//   - ns/{ns}/log/{topic}/{part_be4}/e/{seq_be8} (entries)
//   - ns/{ns}/cursor/{topic}/{group}/{part_be4}  (durable reader cursors)
//
// Each entry is a keyed Record (key, value or tombstone, string headers). The
// sequence number of an entry is its changelog offset; sequences start at 1
// and are never reused.
//
// API surface (internal)
//
//	l, _ := OpenLog(db, ns, topic, part)
//	// Append a batch atomically; returns assigned seq numbers
//	seqs, _ := l.Append(ctx, []Record{{Key: k, Value: v, Headers: h}})
//
//	// Read forward/reverse with an optional start token and limit
//	items, next, _ := l.Read(ReadOptions{Start: TokenFromSeq(seqs[0]), Limit: 100})
//	_ = next // resume position
//
//	// Blocking wait/notify
//	woke := l.WaitForAppend(200 * time.Millisecond)
//	_ = woke
//
//	// Durable reader cursor commits (idempotent, no regression)
//	_ = l.CommitCursor("dump", TokenFromSeq(seqs[len(seqs)-1]))
//
//	// Log compaction: keep only the latest record per identity
//	_, _ = l.Compact(ctx, CompactOptions{})
package eventlog
