// Package partition implements persistent state partitions on top of the
// pebble and bbolt stores.
//
// A partition holds the data of every column family of one store partition
// plus two offsets: the last processed source offset and the last changelog
// offset. Write applies a transaction's update cache and both offsets in one
// atomic batch.
//
// Pebble layout (byte-wise, lexicographically sortable):
//   - st/{store}/{part_be4}/cf/{cf}/k/{key}  (data)
//   - st/{store}/{part_be4}/meta/processed   (int64 BE)
//   - st/{store}/{part_be4}/meta/changelog   (int64 BE)
//
// Bolt layout: a top-level bucket "{store}/{part}" holding one nested bucket per
// column family and a "__meta__" bucket with the offsets.
package partition
