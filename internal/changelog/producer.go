package changelog

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/rzbill/stateflo/internal/eventlog"
	"github.com/rzbill/stateflo/internal/state"
)

// Producer appends changelog records to one eventlog partition. The eventlog
// sequence assigned to a record is its changelog offset.
type Producer struct {
	log *eventlog.Log

	mu     sync.Mutex
	offset int64
}

// NewProducer returns a producer writing to log.
func NewProducer(log *eventlog.Log) *Producer {
	return &Producer{log: log, offset: int64(log.LastSeq())}
}

// ChangelogName returns the changelog topic.
func (p *Producer) ChangelogName() string { return p.log.Topic() }

// Partition returns the changelog partition number.
func (p *Producer) Partition() int32 { return int32(p.log.Partition()) }

// Produce appends one record. A nil value is written as a tombstone.
func (p *Producer) Produce(ctx context.Context, key, value []byte, headers map[string]string) error {
	return p.ProduceBatch(ctx, []state.ChangelogRecord{{Key: key, Value: value, Headers: headers}})
}

// ProduceBatch appends records in one atomic eventlog write. Nil values are
// written as tombstones.
func (p *Producer) ProduceBatch(ctx context.Context, records []state.ChangelogRecord) error {
	if len(records) == 0 {
		return nil
	}
	recs := make([]eventlog.Record, len(records))
	for i, r := range records {
		recs[i] = eventlog.Record{Key: r.Key, Value: r.Value, Tombstone: r.Value == nil, Headers: r.Headers}
	}
	seqs, err := p.log.Append(ctx, recs)
	if err != nil {
		return errors.Wrapf(err, "changelog %s/%d: produce %d records", p.ChangelogName(), p.Partition(), len(records))
	}
	p.mu.Lock()
	p.offset = int64(seqs[len(seqs)-1])
	p.mu.Unlock()
	return nil
}

// Offset returns the offset of the last record this producer appended, or
// the log's last offset when it has not produced anything yet.
func (p *Producer) Offset() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

// Log returns the underlying eventlog partition.
func (p *Producer) Log() *eventlog.Log { return p.log }
