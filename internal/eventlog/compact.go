package eventlog

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/cockroachdb/pebble"
)

// CompactOptions tunes Compact.
type CompactOptions struct {
	// Identity returns the compaction identity of a record. Records sharing an
	// identity supersede each other. Defaults to the record key.
	Identity func(Record) string
	// DropTombstonesBelow also removes tombstones that are the latest record of
	// their identity when their seq is lower than this value. Zero keeps them.
	DropTombstonesBelow uint64
	// BatchLimit caps deletes per committed batch. Defaults to 1024.
	BatchLimit int
	// Throttle pauses between batches.
	Throttle time.Duration
}

// Compact deletes every record superseded by a later record with the same
// identity, keeping the latest one. It returns the number of deleted records.
// Sequence numbers are not reused afterwards. A corrupt entry aborts Compact
// before anything is deleted, since its identity is unknown.
func (l *Log) Compact(ctx context.Context, opts CompactOptions) (int, error) {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 1024
	}
	if opts.Identity == nil {
		opts.Identity = func(r Record) string { return string(r.Key) }
	}

	low := KeyLogEntry(l.namespace, l.topic, l.part, 0)
	hi := KeyLogEntry(l.namespace, l.topic, l.part, ^uint64(0))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	seqOf := func() uint64 { return binary.BigEndian.Uint64(iter.Key()[len(low)-8:]) }

	latest := make(map[string]uint64)
	for ok := iter.First(); ok; ok = iter.Next() {
		rec, okDec := DecodeRecord(iter.Value())
		if !okDec {
			return 0, &CorruptRecordError{Seq: seqOf()}
		}
		latest[opts.Identity(rec)] = seqOf()
	}
	if err := iter.Error(); err != nil {
		return 0, err
	}

	deleted := 0
	for ok := iter.First(); ok; {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		b := l.db.NewBatch()
		n := 0
		for ; ok && n < opts.BatchLimit; ok = iter.Next() {
			rec, okDec := DecodeRecord(iter.Value())
			if !okDec {
				continue
			}
			seq := seqOf()
			drop := latest[opts.Identity(rec)] != seq ||
				(rec.Tombstone && seq < opts.DropTombstonesBelow)
			if !drop {
				continue
			}
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			n++
		}
		if n > 0 {
			if err := l.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, err
			}
			deleted += n
			if opts.Throttle > 0 {
				time.Sleep(opts.Throttle)
			}
		}
		b.Close()
	}
	return deleted, iter.Error()
}
