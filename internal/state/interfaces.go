package state

import (
	"context"
	"time"
)

// Changelog record header names read back during recovery.
const (
	// HeaderColumnFamily carries the column family name of the record.
	HeaderColumnFamily = "__cf"
	// HeaderProcessedOffset carries the JSON-encoded processed source offset.
	HeaderProcessedOffset = "__processed_tp_offset"
)

// Partition is the persistent key-value partition a transaction reads from and
// commits to.
type Partition interface {
	// Get returns the stored value or ErrNotFound.
	Get(cf string, key []byte) ([]byte, error)
	Exists(cf string, key []byte) (bool, error)
	// Write applies every update in batch together with the optional offsets
	// as one atomic unit.
	Write(ctx context.Context, batch *UpdateCache, processedOffset, changelogOffset *int64) error
	// ChangelogOffset returns the last durably recorded changelog offset, if any.
	ChangelogOffset() (int64, bool, error)
}

// ChangelogProducer appends records to one partition of a changelog stream.
type ChangelogProducer interface {
	ChangelogName() string
	Partition() int32
	// Produce appends a record; a nil value marks a deletion.
	Produce(ctx context.Context, key, value []byte, headers map[string]string) error
}

// ChangelogRecord is one record of a ProduceBatch call. A nil Value marks a
// deletion.
type ChangelogRecord struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// BatchProducer is a ChangelogProducer that appends many records in one
// write. Prepare uses it when the producer implements it, so a transaction
// reaches the changelog with a single commit.
type BatchProducer interface {
	ChangelogProducer
	ProduceBatch(ctx context.Context, records []ChangelogRecord) error
}

// TopicPartition identifies a changelog partition.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// Observer receives transaction outcomes, e.g. for metrics.
type Observer interface {
	Prepared(records int, elapsed time.Duration)
	Flushed(entries int, elapsed time.Duration)
	Failed(op string)
}

type noopObserver struct{}

func (noopObserver) Prepared(int, time.Duration) {}
func (noopObserver) Flushed(int, time.Duration)  {}
func (noopObserver) Failed(string)               {}

// Offset returns a pointer to v, for the optional offset arguments of Flush.
func Offset(v int64) *int64 { return &v }
