package partition

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble"
	pkgerrors "github.com/pkg/errors"

	"github.com/rzbill/stateflo/internal/state"
	pebblestore "github.com/rzbill/stateflo/internal/storage/pebble"
)

// Pebble is a Partition stored in a shared pebble database.
type Pebble struct {
	db    *pebblestore.DB
	store string
	id    int32
}

var _ Partition = (*Pebble)(nil)

// NewPebble returns the partition id of store inside db. Partitions of any
// number of stores may share one db.
func NewPebble(db *pebblestore.DB, store string, id int32) *Pebble {
	return &Pebble{db: db, store: store, id: id}
}

func (p *Pebble) Store() string { return p.store }
func (p *Pebble) ID() int32     { return p.id }

func (p *Pebble) Get(cf string, key []byte) ([]byte, error) {
	if err := ValidateColumnFamily(cf); err != nil {
		return nil, err
	}
	v, err := p.db.Get(KeyData(p.store, p.id, cf, key))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return nil, state.ErrNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "pebble partition %s/%d: get cf=%s", p.store, p.id, cf)
	}
	return v, nil
}

func (p *Pebble) Exists(cf string, key []byte) (bool, error) {
	if err := ValidateColumnFamily(cf); err != nil {
		return false, err
	}
	ok, err := p.db.Exists(KeyData(p.store, p.id, cf, key))
	if err != nil {
		return false, pkgerrors.Wrapf(err, "pebble partition %s/%d: exists cf=%s", p.store, p.id, cf)
	}
	return ok, nil
}

// Write applies batch and the offsets in a single pebble batch.
func (p *Pebble) Write(ctx context.Context, batch *state.UpdateCache, processedOffset, changelogOffset *int64) error {
	b := p.db.NewBatch()
	defer b.Close()

	err := batch.Range(func(u state.Update) error {
		if err := ValidateColumnFamily(u.ColumnFamily); err != nil {
			return err
		}
		k := KeyData(p.store, p.id, u.ColumnFamily, u.Key)
		if u.Deleted {
			return b.Delete(k, nil)
		}
		return b.Set(k, u.Value, nil)
	})
	if err != nil {
		return err
	}
	if processedOffset != nil {
		if err := b.Set(KeyProcessedOffset(p.store, p.id), encodeOffset(*processedOffset), nil); err != nil {
			return err
		}
	}
	if changelogOffset != nil {
		if err := b.Set(KeyChangelogOffset(p.store, p.id), encodeOffset(*changelogOffset), nil); err != nil {
			return err
		}
	}
	if err := p.db.CommitBatch(ctx, b); err != nil {
		return pkgerrors.Wrapf(err, "pebble partition %s/%d: commit", p.store, p.id)
	}
	return nil
}

func (p *Pebble) readOffset(key []byte) (int64, bool, error) {
	v, err := p.db.Get(key)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	off, ok := decodeOffset(v)
	return off, ok, nil
}

func (p *Pebble) ChangelogOffset() (int64, bool, error) {
	return p.readOffset(KeyChangelogOffset(p.store, p.id))
}

func (p *Pebble) ProcessedOffset() (int64, bool, error) {
	return p.readOffset(KeyProcessedOffset(p.store, p.id))
}

func (p *Pebble) Scan(ctx context.Context, cf string, prefix []byte, fn func(key, value []byte) error) error {
	if err := ValidateColumnFamily(cf); err != nil {
		return err
	}
	base := KeyColumnFamilyPrefix(p.store, p.id, cf)
	low := append(append([]byte(nil), base...), prefix...)
	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: pebblestore.PrefixUpperBound(low)})
	if err != nil {
		return err
	}
	defer iter.Close()
	for ok := iter.First(); ok; ok = iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := append([]byte(nil), iter.Key()[len(base):]...)
		value := append([]byte(nil), iter.Value()...)
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return iter.Error()
}
