package catalog

import (
	"errors"
	"testing"

	pebblestore "github.com/rzbill/stateflo/internal/storage/pebble"
)

func newDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEnsurePartitionIdempotent(t *testing.T) {
	db := newDB(t)

	m1, err := EnsurePartition(db, "orders", "pebble", 2)
	if err != nil {
		t.Fatalf("ensure1: %v", err)
	}
	m2, err := EnsurePartition(db, "orders", "pebble", 2)
	if err != nil {
		t.Fatalf("ensure2: %v", err)
	}
	if m1.Name != m2.Name || m1.CreatedAtMs != m2.CreatedAtMs || len(m2.Partitions) != 1 {
		t.Fatalf("not idempotent: %+v vs %+v", m1, m2)
	}

	m3, err := EnsurePartition(db, "orders", "pebble", 0)
	if err != nil {
		t.Fatalf("ensure3: %v", err)
	}
	if len(m3.Partitions) != 2 || m3.Partitions[0] != 0 || m3.Partitions[1] != 2 {
		t.Fatalf("partitions = %v, want [0 2]", m3.Partitions)
	}
	if !m3.HasPartition(2) || m3.HasPartition(1) {
		t.Fatalf("HasPartition mismatch for %v", m3.Partitions)
	}
}

func TestEnsurePartitionBackendMismatch(t *testing.T) {
	db := newDB(t)
	if _, err := EnsurePartition(db, "orders", "pebble", 0); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	_, err := EnsurePartition(db, "orders", "bolt", 0)
	if !errors.Is(err, ErrBackendMismatch) {
		t.Fatalf("want ErrBackendMismatch, got %v", err)
	}
}

func TestListAndGet(t *testing.T) {
	db := newDB(t)
	for _, name := range []string{"users", "orders"} {
		if _, err := EnsurePartition(db, name, "bolt", 0); err != nil {
			t.Fatalf("ensure %s: %v", name, err)
		}
	}
	stores, err := List(db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stores) != 2 || stores[0].Name != "orders" || stores[1].Name != "users" {
		t.Fatalf("unexpected stores: %+v", stores)
	}
	if _, ok, err := Get(db, "missing"); ok || err != nil {
		t.Fatalf("missing store: ok=%v err=%v", ok, err)
	}
}

func TestValidateStoreName(t *testing.T) {
	for _, name := range []string{"", "a/b", "with space"} {
		if err := ValidateStoreName(name); !errors.Is(err, ErrInvalidStoreName) {
			t.Fatalf("expected %q to be rejected with ErrInvalidStoreName, got %v", name, err)
		}
	}
	if err := ValidateStoreName("orders-v2.count_1"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
}
