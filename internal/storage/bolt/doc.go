// Package boltstore wraps a bbolt database with nested-bucket helpers and the
// same metrics hook surface as the pebble store, so a partition can be backed
// by either engine.
//
// Usage:
//
//	db, err := boltstore.Open(boltstore.Options{Path: "./data/store/state.db"})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	err = db.Update(ctx, func(tx *bolt.Tx) error {
//	    b, err := boltstore.CreateBucketPath(tx, []byte("orders/0"), []byte("default"))
//	    if err != nil { return err }
//	    return b.Put([]byte("k"), []byte("v"))
//	})
package boltstore
