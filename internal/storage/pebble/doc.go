// Package pebblestore provides a thin wrapper around Pebble with fsync policy,
// snapshots, batches, and minimal metrics hooks. It backs both the pebble
// partition store and the changelog.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data/store",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	// Atomic updates with batches
//	b := db.NewBatch()
//	_ = b.Set([]byte("k"), []byte("v"), nil)
//	_ = db.CommitBatch(ctx, b)
//	b.Close()
//
//	// Point ops
//	_ = db.Set([]byte("k2"), []byte("v2"))
//	v, err := db.Get([]byte("k2")) // ErrNotFound when absent
//	ok, _ := db.Exists([]byte("k2"))
package pebblestore
