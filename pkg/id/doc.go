// Package id generates the 128-bit identifiers that tag state transactions
// in logs.
//
// An ID is 16 bytes: the creation time in unix milliseconds followed by a
// sequence number, both big-endian, so byte order is creation order. A
// Generator never goes backwards within a process, even if the wall clock
// does.
//
//	g := id.NewGenerator()
//	txID := g.Next()
//	fmt.Println(txID, txID.Time())
package id
