package partition

import (
	"bytes"
	"testing"
)

func TestDataKeysStayInsidePartitionRange(t *testing.T) {
	k := KeyData("orders", 1, "default", []byte("k"))
	if !bytes.HasPrefix(k, KeyColumnFamilyPrefix("orders", 1, "default")) {
		t.Fatalf("data key outside its column family range: %q", k)
	}
	if bytes.HasPrefix(k, KeyPartitionPrefix("orders", 2)) {
		t.Fatalf("data key inside another partition's range")
	}
	if bytes.HasPrefix(KeyProcessedOffset("orders", 1), KeyColumnFamilyPrefix("orders", 1, "default")) {
		t.Fatalf("meta key inside data range")
	}
}

func TestOffsetEncoding(t *testing.T) {
	for _, v := range []int64{0, 1, 1 << 40, -1} {
		got, ok := decodeOffset(encodeOffset(v))
		if !ok || got != v {
			t.Fatalf("offset %d decoded as %d", v, got)
		}
	}
	if _, ok := decodeOffset([]byte{1, 2}); ok {
		t.Fatalf("short offset should not decode")
	}
}
