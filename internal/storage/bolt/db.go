package boltstore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Options configures the bbolt store wrapper.
type Options struct {
	// Path is the database file. Its parent directory is created if missing.
	Path string
	// NoSync skips fsync after each commit.
	NoSync bool
	// Timeout bounds how long Open waits for the file lock. Zero waits one second.
	Timeout time.Duration
	// Metrics observes read and commit latencies. Optional.
	Metrics MetricsHook
}

// MetricsHook is a minimal hook surface for storage observations.
type MetricsHook interface {
	ObserveRead(elapsed time.Duration, bytes int)
	ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveRead(time.Duration, int)             {}
func (NoopMetrics) ObserveBatchCommit(time.Duration, int, int) {}

// DB wraps a bbolt database.
type DB struct {
	inner   *bolt.DB
	metrics MetricsHook
}

// Open creates or opens the bbolt file at opts.Path.
func Open(opts Options) (*DB, error) {
	if opts.Path == "" {
		return nil, errors.New("bolt: Options.Path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "bolt: create directory for %s", opts.Path)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	inner, err := bolt.Open(opts.Path, 0o600, &bolt.Options{Timeout: timeout, NoSync: opts.NoSync})
	if err != nil {
		return nil, errors.Wrapf(err, "bolt: open %s", opts.Path)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &DB{inner: inner, metrics: metrics}, nil
}

// Close closes the database file.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

// Path returns the database file path.
func (db *DB) Path() string { return db.inner.Path() }

// View runs fn in a read-only transaction.
func (db *DB) View(fn func(tx *bolt.Tx) error) error {
	return db.inner.View(fn)
}

// Update runs fn in a read-write transaction that commits when fn returns nil.
// A cancelled ctx aborts before the transaction starts.
func (db *DB) Update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	before := db.inner.Stats()
	var size int
	err := db.inner.Update(func(tx *bolt.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		size = int(tx.Size())
		return nil
	})
	if err == nil {
		// Page writes are only counted once the transaction has committed.
		after := db.inner.Stats()
		diff := after.Sub(&before)
		db.metrics.ObserveBatchCommit(time.Since(start), int(diff.TxStats.GetWrite()), size)
	}
	return err
}

// Get copies the value stored under key in the bucket at path. ok is false
// when either the bucket or the key is missing.
func (db *DB) Get(path [][]byte, key []byte) (value []byte, ok bool, err error) {
	start := time.Now()
	err = db.inner.View(func(tx *bolt.Tx) error {
		b := Bucket(tx, path...)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			value = append([]byte{}, v...)
			ok = true
		}
		return nil
	})
	if ok {
		db.metrics.ObserveRead(time.Since(start), len(value))
	}
	return value, ok, err
}

// Bucket walks the nested bucket path and returns nil if any level is missing.
func Bucket(tx *bolt.Tx, path ...[]byte) *bolt.Bucket {
	if len(path) == 0 {
		return nil
	}
	b := tx.Bucket(path[0])
	for _, name := range path[1:] {
		if b == nil {
			return nil
		}
		b = b.Bucket(name)
	}
	return b
}

// CreateBucketPath ensures every bucket along path exists and returns the last.
func CreateBucketPath(tx *bolt.Tx, path ...[]byte) (*bolt.Bucket, error) {
	if len(path) == 0 {
		return nil, errors.New("bolt: empty bucket path")
	}
	b, err := tx.CreateBucketIfNotExists(path[0])
	if err != nil {
		return nil, errors.Wrapf(err, "bolt: create bucket %q", path[0])
	}
	for _, name := range path[1:] {
		if b, err = b.CreateBucketIfNotExists(name); err != nil {
			return nil, errors.Wrapf(err, "bolt: create bucket %q", name)
		}
	}
	return b, nil
}
