// Package catalog records which state stores exist, the backend they were
// created with and the partitions opened so far.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/stateflo/internal/storage/pebble"
)

// ErrBackendMismatch is returned when a store is reopened with a different backend.
var ErrBackendMismatch = errors.New("store was created with a different backend")

// ErrInvalidStoreName is returned for store names outside the allowed pattern.
var ErrInvalidStoreName = errors.New("invalid store name")

var nameRE = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// ValidateStoreName rejects names the key layouts cannot represent.
func ValidateStoreName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("%w %q: want %s", ErrInvalidStoreName, name, nameRE.String())
	}
	return nil
}

// Meta holds store metadata.
type Meta struct {
	Name        string  `json:"name"`
	Backend     string  `json:"backend"`
	CreatedAtMs int64   `json:"createdAtMs"`
	Partitions  []int32 `json:"partitions"`
}

// HasPartition reports whether partition was recorded for the store.
func (m Meta) HasPartition(partition int32) bool {
	i := sort.Search(len(m.Partitions), func(i int) bool { return m.Partitions[i] >= partition })
	return i < len(m.Partitions) && m.Partitions[i] == partition
}

var storeMetaPrefix = []byte("storemeta/")

func storeMetaKey(name string) []byte {
	k := make([]byte, 0, len(storeMetaPrefix)+len(name))
	k = append(k, storeMetaPrefix...)
	k = append(k, name...)
	return k
}

// Get loads the metadata of a store.
func Get(db *pebblestore.DB, name string) (Meta, bool, error) {
	b, err := db.Get(storeMetaKey(name))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return Meta{}, false, nil
	}
	if err != nil {
		return Meta{}, false, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, false, fmt.Errorf("store %s: corrupted metadata: %w", name, err)
	}
	return m, true, nil
}

// EnsurePartition records partition for store, creating the store record if
// absent. Idempotent: returns the existing record when nothing changes.
func EnsurePartition(db *pebblestore.DB, name, backend string, partition int32) (Meta, error) {
	if err := ValidateStoreName(name); err != nil {
		return Meta{}, err
	}
	m, ok, err := Get(db, name)
	if err != nil {
		return Meta{}, err
	}
	if !ok {
		m = Meta{Name: name, Backend: backend, CreatedAtMs: time.Now().UnixMilli()}
	}
	if m.Backend != backend {
		return Meta{}, fmt.Errorf("store %s: %w (%s, opened with %s)", name, ErrBackendMismatch, m.Backend, backend)
	}
	if ok && m.HasPartition(partition) {
		return m, nil
	}
	m.Partitions = append(m.Partitions, partition)
	sort.Slice(m.Partitions, func(i, j int) bool { return m.Partitions[i] < m.Partitions[j] })
	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := db.Set(storeMetaKey(name), b); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// List returns every recorded store ordered by name.
func List(db *pebblestore.DB) ([]Meta, error) {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: storeMetaPrefix,
		UpperBound: pebblestore.PrefixUpperBound(storeMetaPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []Meta
	for ok := iter.First(); ok; ok = iter.Next() {
		var m Meta
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("store %s: corrupted metadata: %w", iter.Key()[len(storeMetaPrefix):], err)
		}
		out = append(out, m)
	}
	return out, iter.Error()
}
