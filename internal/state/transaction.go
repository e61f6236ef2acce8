package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rzbill/stateflo/pkg/id"
	logpkg "github.com/rzbill/stateflo/pkg/log"
)

var txIDs = id.NewGenerator()

// Options configures a PartitionTransaction.
type Options struct {
	// Codec serializes keys and values. Defaults to JSONCodec.
	Codec Codec
	// Producer mirrors changes to a changelog on Prepare. Nil disables the changelog.
	Producer ChangelogProducer
	Logger   logpkg.Logger
	Observer Observer
}

// PartitionTransaction performs get, set, delete and exists on a single
// partition and commits the result atomically.
type PartitionTransaction struct {
	id        id.ID
	partition Partition
	producer  ChangelogProducer
	codec     Codec
	logger    logpkg.Logger
	observer  Observer

	status TransactionStatus
	cache  *UpdateCache
}

// NewPartitionTransaction starts a transaction over partition.
func NewPartitionTransaction(partition Partition, opts Options) *PartitionTransaction {
	if opts.Codec == nil {
		opts.Codec = JSONCodec{}
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewNopLogger()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	txID := txIDs.Next()
	return &PartitionTransaction{
		id:        txID,
		partition: partition,
		producer:  opts.Producer,
		codec:     opts.Codec,
		logger:    opts.Logger.With(logpkg.Str(logpkg.TransactionKey, txID.String())),
		observer:  opts.Observer,
		status:    StatusStarted,
		cache:     NewUpdateCache(),
	}
}

// ID returns the process-unique transaction identifier.
func (tx *PartitionTransaction) ID() id.ID { return tx.id }

// Status returns the current lifecycle status.
func (tx *PartitionTransaction) Status() TransactionStatus { return tx.status }

// Failed reports whether the transaction failed; failed transactions cannot be reused.
func (tx *PartitionTransaction) Failed() bool { return tx.status == StatusFailed }

// Completed reports whether the transaction was flushed successfully.
func (tx *PartitionTransaction) Completed() bool { return tx.status == StatusComplete }

// Prepared reports whether the transaction is prepared and awaits Flush.
func (tx *PartitionTransaction) Prepared() bool { return tx.status == StatusPrepared }

// ChangelogProducer returns the attached producer or nil.
func (tx *PartitionTransaction) ChangelogProducer() ChangelogProducer { return tx.producer }

// ChangelogTopicPartition returns the changelog partition this transaction
// mirrors to. ok is false when no producer is attached.
func (tx *PartitionTransaction) ChangelogTopicPartition() (tp TopicPartition, ok bool) {
	if tx.producer == nil {
		return TopicPartition{}, false
	}
	return TopicPartition{Topic: tx.producer.ChangelogName(), Partition: tx.producer.Partition()}, true
}

func (tx *PartitionTransaction) serializeKey(key any, prefix []byte) ([]byte, error) {
	kb, err := tx.codec.Serialize(key)
	if err != nil {
		return nil, &SerializationError{What: "key", Err: err}
	}
	return prefixKey(prefix, kb), nil
}

func (tx *PartitionTransaction) deserialize(b []byte, out any) error {
	if err := tx.codec.Deserialize(b, out); err != nil {
		return &DeserializationError{Err: err}
	}
	return nil
}

// fail moves the transaction to FAILED and drops the staged updates.
func (tx *PartitionTransaction) fail(op string, err error) {
	tx.status = StatusFailed
	tx.cache = nil
	tx.observer.Failed(op)
	tx.logger.Warn("state transaction failed", logpkg.Str(logpkg.OperationKey, op), logpkg.Err(err))
}

// Get loads the value stored for key under prefix in column family cf into out.
// It reports false and leaves out untouched when the key does not exist or was
// deleted in this transaction, so out may be pre-filled with a default.
func (tx *PartitionTransaction) Get(key any, prefix []byte, cf string, out any) (bool, error) {
	if err := checkStatus("get", tx.status, StatusStarted); err != nil {
		return false, err
	}
	k, err := tx.serializeKey(key, prefix)
	if err != nil {
		return false, err
	}

	switch cached := tx.cache.lookup(cf, prefix, k); cached.kind {
	case entryDeleted:
		return false, nil
	case entryValue:
		return true, tx.deserialize(cached.value, out)
	}

	stored, err := tx.partition.Get(cf, k)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, tx.deserialize(stored, out)
}

// Set stages value for key under prefix in column family cf.
// A serialization failure fails the whole transaction.
func (tx *PartitionTransaction) Set(key, value any, prefix []byte, cf string) error {
	if err := checkStatus("set", tx.status, StatusStarted); err != nil {
		return err
	}
	k, err := tx.serializeKey(key, prefix)
	if err != nil {
		tx.fail("set", err)
		return err
	}
	v, err := tx.codec.Serialize(value)
	if err != nil {
		err = &SerializationError{What: "value", Err: err}
		tx.fail("set", err)
		return err
	}
	tx.cache.Set(cf, prefix, k, v)
	return nil
}

// Delete stages a deletion of key under prefix in column family cf. It does not
// check whether the key exists.
func (tx *PartitionTransaction) Delete(key any, prefix []byte, cf string) error {
	if err := checkStatus("delete", tx.status, StatusStarted); err != nil {
		return err
	}
	k, err := tx.serializeKey(key, prefix)
	if err != nil {
		tx.fail("delete", err)
		return err
	}
	tx.cache.Delete(cf, prefix, k)
	return nil
}

// Exists reports whether key under prefix exists in column family cf, taking
// this transaction's staged updates into account.
func (tx *PartitionTransaction) Exists(key any, prefix []byte, cf string) (bool, error) {
	if err := checkStatus("exists", tx.status, StatusStarted); err != nil {
		return false, err
	}
	k, err := tx.serializeKey(key, prefix)
	if err != nil {
		return false, err
	}
	switch tx.cache.lookup(cf, prefix, k).kind {
	case entryDeleted:
		return false, nil
	case entryValue:
		return true, nil
	}
	return tx.partition.Exists(cf, k)
}

// Prepare produces one changelog record per staged update and freezes the
// transaction; afterwards only Flush is allowed. processedOffset is the offset
// of the source message whose processing produced these changes. Without a
// producer Prepare only changes the status.
func (tx *PartitionTransaction) Prepare(ctx context.Context, processedOffset int64) error {
	return tx.prepareChecked(ctx, &processedOffset)
}

// PrepareWithoutOffset is Prepare for changes that do not stem from a source
// message, such as manual edits. The records carry no processed offset
// header, so recovering them leaves the stored processed offset as is.
func (tx *PartitionTransaction) PrepareWithoutOffset(ctx context.Context) error {
	return tx.prepareChecked(ctx, nil)
}

func (tx *PartitionTransaction) prepareChecked(ctx context.Context, processedOffset *int64) error {
	if err := checkStatus("prepare", tx.status, StatusStarted); err != nil {
		return err
	}
	start := time.Now()
	n, err := tx.prepare(ctx, processedOffset)
	if err != nil {
		tx.fail("prepare", err)
		return err
	}
	tx.status = StatusPrepared
	tx.observer.Prepared(n, time.Since(start))
	return nil
}

func (tx *PartitionTransaction) prepare(ctx context.Context, processedOffset *int64) (int, error) {
	if tx.producer == nil {
		return 0, nil
	}
	fields := []logpkg.Field{
		logpkg.Str("topic", tx.producer.ChangelogName()),
		logpkg.Int32(logpkg.PartitionKey, tx.producer.Partition()),
		logpkg.Int("records", tx.cache.Len()),
	}
	var offsetHeader string
	if processedOffset != nil {
		fields = append(fields, logpkg.Int64("processed_offset", *processedOffset))
		b, err := json.Marshal(*processedOffset)
		if err != nil {
			return 0, err
		}
		offsetHeader = string(b)
	}
	tx.logger.Debug("flushing state changes to the changelog topic", fields...)

	records := make([]ChangelogRecord, 0, tx.cache.Len())
	_ = tx.cache.Range(func(u Update) error {
		headers := map[string]string{HeaderColumnFamily: u.ColumnFamily}
		if processedOffset != nil {
			headers[HeaderProcessedOffset] = offsetHeader
		}
		rec := ChangelogRecord{Key: u.Key, Headers: headers}
		if !u.Deleted {
			rec.Value = u.Value
		}
		records = append(records, rec)
		return nil
	})
	if len(records) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if bp, ok := tx.producer.(BatchProducer); ok {
		if err := bp.ProduceBatch(ctx, records); err != nil {
			return 0, err
		}
		return len(records), nil
	}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := tx.producer.Produce(ctx, rec.Key, rec.Value, rec.Headers); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

// Flush writes the staged updates to the partition together with the
// processed and changelog offsets, then completes the transaction. Both
// offsets are optional.
//
// If nothing was set or deleted, Flush performs no I/O at all, including the
// offsets. A changelog offset lower than the one already stored is rejected
// with ErrInvalidChangelogOffset.
func (tx *PartitionTransaction) Flush(ctx context.Context, processedOffset, changelogOffset *int64) error {
	if err := checkStatus("flush", tx.status, StatusStarted, StatusPrepared); err != nil {
		return err
	}
	start := time.Now()
	n := tx.cache.Len()
	if err := tx.flush(ctx, processedOffset, changelogOffset); err != nil {
		tx.fail("flush", err)
		return err
	}
	tx.status = StatusComplete
	tx.cache = nil
	tx.observer.Flushed(n, time.Since(start))
	return nil
}

func (tx *PartitionTransaction) flush(ctx context.Context, processedOffset, changelogOffset *int64) error {
	if tx.cache.Empty() {
		return nil
	}

	if changelogOffset != nil {
		current, ok, err := tx.partition.ChangelogOffset()
		if err != nil {
			return err
		}
		if ok && *changelogOffset < current {
			return fmt.Errorf("%w: got %d, stored %d", ErrInvalidChangelogOffset, *changelogOffset, current)
		}
	}

	fields := []logpkg.Field{logpkg.Int("entries", tx.cache.Len())}
	if processedOffset != nil {
		fields = append(fields, logpkg.Int64("processed_offset", *processedOffset))
	}
	if changelogOffset != nil {
		fields = append(fields, logpkg.Int64("changelog_offset", *changelogOffset))
	}
	tx.logger.Debug("flushing state changes to the partition", fields...)

	return tx.partition.Write(ctx, tx.cache, processedOffset, changelogOffset)
}

// WithTransaction runs fn and flushes tx when fn returns nil. If fn returns an
// error tx is left as is and the error is returned; if tx already failed
// nothing else happens.
func WithTransaction(ctx context.Context, tx *PartitionTransaction, fn func(*PartitionTransaction) error) error {
	if err := fn(tx); err != nil {
		return err
	}
	if tx.Failed() {
		return nil
	}
	return tx.Flush(ctx, nil, nil)
}
