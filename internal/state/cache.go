package state

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// DefaultColumnFamily is used when callers do not name one.
const DefaultColumnFamily = "default"

type entryKind uint8

const (
	// entryUndefined means the triple was not touched in this transaction.
	entryUndefined entryKind = iota
	entryValue
	entryDeleted
)

type cacheEntry struct {
	kind  entryKind
	value []byte
}

// cacheKey is the composite (column family, prefix, serialized key) identity of
// a staged update.
type cacheKey struct {
	cf     string
	prefix string
	key    string
}

// Update is a single staged change as seen by Partition.Write and changelog
// emission.
type Update struct {
	ColumnFamily string
	Prefix       []byte
	Key          []byte
	// Value is nil when Deleted is true.
	Value   []byte
	Deleted bool
}

// UpdateCache holds the pending writes and deletes of one transaction. Entries
// keep the order in which their triple was first written; a later write to the
// same triple replaces the value in place.
type UpdateCache struct {
	entries *linkedhashmap.Map
}

// NewUpdateCache returns an empty cache.
func NewUpdateCache() *UpdateCache {
	return &UpdateCache{entries: linkedhashmap.New()}
}

func (c *UpdateCache) put(cf string, prefix, key []byte, e cacheEntry) {
	c.entries.Put(cacheKey{cf: cf, prefix: string(prefix), key: string(key)}, e)
}

// Set stages value for the triple.
func (c *UpdateCache) Set(cf string, prefix, key, value []byte) {
	c.put(cf, prefix, key, cacheEntry{kind: entryValue, value: value})
}

// Delete stages a tombstone for the triple.
func (c *UpdateCache) Delete(cf string, prefix, key []byte) {
	c.put(cf, prefix, key, cacheEntry{kind: entryDeleted})
}

func (c *UpdateCache) lookup(cf string, prefix, key []byte) cacheEntry {
	v, ok := c.entries.Get(cacheKey{cf: cf, prefix: string(prefix), key: string(key)})
	if !ok {
		return cacheEntry{kind: entryUndefined}
	}
	return v.(cacheEntry)
}

// Len returns the number of distinct staged triples.
func (c *UpdateCache) Len() int { return c.entries.Size() }

// Empty reports whether nothing was staged.
func (c *UpdateCache) Empty() bool { return c.entries.Empty() }

// ColumnFamilies lists the column families with staged updates in first-use order.
func (c *UpdateCache) ColumnFamilies() []string {
	var out []string
	seen := make(map[string]struct{})
	it := c.entries.Iterator()
	for it.Next() {
		cf := it.Key().(cacheKey).cf
		if _, ok := seen[cf]; ok {
			continue
		}
		seen[cf] = struct{}{}
		out = append(out, cf)
	}
	return out
}

// Range calls fn for every staged update in insertion order and stops at the
// first error.
func (c *UpdateCache) Range(fn func(Update) error) error {
	it := c.entries.Iterator()
	for it.Next() {
		k := it.Key().(cacheKey)
		e := it.Value().(cacheEntry)
		u := Update{ColumnFamily: k.cf, Key: []byte(k.key)}
		if k.prefix != "" {
			u.Prefix = []byte(k.prefix)
		}
		if e.kind == entryDeleted {
			u.Deleted = true
		} else {
			u.Value = e.value
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

// RangeColumnFamily is Range restricted to one column family.
func (c *UpdateCache) RangeColumnFamily(cf string, fn func(Update) error) error {
	return c.Range(func(u Update) error {
		if u.ColumnFamily != cf {
			return nil
		}
		return fn(u)
	})
}
