package partition

import (
	"bytes"
	"context"
	"strconv"

	pkgerrors "github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/rzbill/stateflo/internal/state"
	boltstore "github.com/rzbill/stateflo/internal/storage/bolt"
)

const metaBucket = "__meta__"

var (
	processedKey = []byte("processed")
	changelogKey = []byte("changelog")
)

// Bolt is a Partition stored in a shared bbolt database.
type Bolt struct {
	db    *boltstore.DB
	store string
	id    int32
	root  []byte
}

var _ Partition = (*Bolt)(nil)

// NewBolt returns the partition id of store inside db.
func NewBolt(db *boltstore.DB, store string, id int32) *Bolt {
	return &Bolt{db: db, store: store, id: id, root: []byte(store + "/" + strconv.Itoa(int(id)))}
}

func (p *Bolt) Store() string { return p.store }
func (p *Bolt) ID() int32     { return p.id }

func (p *Bolt) Get(cf string, key []byte) ([]byte, error) {
	if err := ValidateColumnFamily(cf); err != nil {
		return nil, err
	}
	v, ok, err := p.db.Get([][]byte{p.root, []byte(cf)}, key)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "bolt partition %s/%d: get cf=%s", p.store, p.id, cf)
	}
	if !ok {
		return nil, state.ErrNotFound
	}
	return v, nil
}

func (p *Bolt) Exists(cf string, key []byte) (bool, error) {
	if err := ValidateColumnFamily(cf); err != nil {
		return false, err
	}
	var found bool
	err := p.db.View(func(tx *bolt.Tx) error {
		if b := boltstore.Bucket(tx, p.root, []byte(cf)); b != nil {
			found = b.Get(key) != nil
		}
		return nil
	})
	return found, err
}

// Write applies batch and the offsets in one bolt read-write transaction.
func (p *Bolt) Write(ctx context.Context, batch *state.UpdateCache, processedOffset, changelogOffset *int64) error {
	err := p.db.Update(ctx, func(tx *bolt.Tx) error {
		err := batch.Range(func(u state.Update) error {
			if err := ValidateColumnFamily(u.ColumnFamily); err != nil {
				return err
			}
			b, err := boltstore.CreateBucketPath(tx, p.root, []byte(u.ColumnFamily))
			if err != nil {
				return err
			}
			if u.Deleted {
				return b.Delete(u.Key)
			}
			return b.Put(u.Key, u.Value)
		})
		if err != nil {
			return err
		}
		if processedOffset == nil && changelogOffset == nil {
			return nil
		}
		meta, err := boltstore.CreateBucketPath(tx, p.root, []byte(metaBucket))
		if err != nil {
			return err
		}
		if processedOffset != nil {
			if err := meta.Put(processedKey, encodeOffset(*processedOffset)); err != nil {
				return err
			}
		}
		if changelogOffset != nil {
			return meta.Put(changelogKey, encodeOffset(*changelogOffset))
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "bolt partition %s/%d: write", p.store, p.id)
	}
	return nil
}

func (p *Bolt) readOffset(key []byte) (int64, bool, error) {
	v, ok, err := p.db.Get([][]byte{p.root, []byte(metaBucket)}, key)
	if err != nil || !ok {
		return 0, false, err
	}
	off, ok := decodeOffset(v)
	return off, ok, nil
}

func (p *Bolt) ChangelogOffset() (int64, bool, error) { return p.readOffset(changelogKey) }
func (p *Bolt) ProcessedOffset() (int64, bool, error) { return p.readOffset(processedKey) }

func (p *Bolt) Scan(ctx context.Context, cf string, prefix []byte, fn func(key, value []byte) error) error {
	if err := ValidateColumnFamily(cf); err != nil {
		return err
	}
	return p.db.View(func(tx *bolt.Tx) error {
		b := boltstore.Bucket(tx, p.root, []byte(cf))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(append([]byte(nil), k...), append([]byte(nil), v...)); err != nil {
				return err
			}
		}
		return nil
	})
}

