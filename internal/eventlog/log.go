package eventlog

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	pebblestore "github.com/rzbill/stateflo/internal/storage/pebble"
)

// Log provides append-only operations for a namespace/topic/partition.
type Log struct {
	db        *pebblestore.DB
	namespace string
	topic     string
	part      uint32

	mu       sync.Mutex
	lastSeq  uint64
	notifyCh chan struct{}
}

// OpenLog initializes a Log and loads the last sequence from metadata (if any).
func OpenLog(db *pebblestore.DB, namespace, topic string, partition uint32) (*Log, error) {
	l := &Log{db: db, namespace: namespace, topic: topic, part: partition, notifyCh: make(chan struct{})}
	meta, err := db.Get(KeyLogMeta(namespace, topic, partition))
	switch {
	case err == nil && len(meta) >= 8:
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	case err != nil && !errors.Is(err, pebblestore.ErrNotFound):
		return nil, err
	}
	return l, nil
}

func (l *Log) Namespace() string { return l.namespace }
func (l *Log) Topic() string     { return l.topic }
func (l *Log) Partition() uint32 { return l.part }

// LastSeq returns the sequence of the last appended record, 0 for an empty log.
// Sequences are never reused, also after compaction.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// Append appends the provided records as a single atomic batch. Returns assigned seq numbers.
func (l *Log) Append(ctx context.Context, recs []Record) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	seq := l.lastSeq
	seqs := make([]uint64, len(recs))
	for i, r := range recs {
		seq++
		val, err := EncodeRecord(r)
		if err != nil {
			return nil, err
		}
		if err := b.Set(KeyLogEntry(l.namespace, l.topic, l.part, seq), val, nil); err != nil {
			return nil, err
		}
		seqs[i] = seq
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(KeyLogMeta(l.namespace, l.topic, l.part), meta[:], nil); err != nil {
		return nil, err
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	l.lastSeq = seq
	// notify waiters
	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	return seqs, nil
}
