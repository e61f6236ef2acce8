package partition

import (
	"encoding/binary"
)

var (
	storePrefix   = []byte("st/")
	cfSeg         = []byte("/cf/")
	keySeg        = []byte("/k/")
	processedMeta = []byte("/meta/processed")
	changelogMeta = []byte("/meta/changelog")
)

func appendBE4(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// KeyPartitionPrefix returns st/{store}/{part_be4}.
func KeyPartitionPrefix(store string, partition int32) []byte {
	k := make([]byte, 0, len(store)+16)
	k = append(k, storePrefix...)
	k = append(k, store...)
	k = append(k, '/')
	k = appendBE4(k, uint32(partition))
	return k
}

// KeyColumnFamilyPrefix returns st/{store}/{part_be4}/cf/{cf}/k/.
func KeyColumnFamilyPrefix(store string, partition int32, cf string) []byte {
	k := KeyPartitionPrefix(store, partition)
	k = append(k, cfSeg...)
	k = append(k, cf...)
	k = append(k, keySeg...)
	return k
}

// KeyData builds the data key for key in cf.
func KeyData(store string, partition int32, cf string, key []byte) []byte {
	return append(KeyColumnFamilyPrefix(store, partition, cf), key...)
}

// KeyProcessedOffset builds the key of the processed offset record.
func KeyProcessedOffset(store string, partition int32) []byte {
	return append(KeyPartitionPrefix(store, partition), processedMeta...)
}

// KeyChangelogOffset builds the key of the changelog offset record.
func KeyChangelogOffset(store string, partition int32) []byte {
	return append(KeyPartitionPrefix(store, partition), changelogMeta...)
}
