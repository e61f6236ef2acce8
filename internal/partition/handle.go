package partition

import (
	"context"

	"github.com/rzbill/stateflo/internal/state"
)

// ChangelogProducer is a state.ChangelogProducer that also reports the offset
// of the last record it appended.
type ChangelogProducer interface {
	state.ChangelogProducer
	// Offset returns the last produced offset, or 0 before the first record.
	Offset() int64
}

// Handle binds a partition to its optional changelog producer and the options
// new transactions are created with.
type Handle struct {
	Partition Partition
	// Producer is nil when the changelog is disabled.
	Producer ChangelogProducer
	Options  state.Options
}

// Begin starts a transaction over the partition.
func (h *Handle) Begin() *state.PartitionTransaction {
	opts := h.Options
	if h.Producer != nil {
		opts.Producer = h.Producer
	}
	return state.NewPartitionTransaction(h.Partition, opts)
}

// Commit prepares tx for processedOffset and flushes it with the changelog
// offset the producer reached, recording both offsets in the partition. A nil
// processedOffset leaves the stored processed offset untouched, both in the
// partition and in the changelog records.
func (h *Handle) Commit(ctx context.Context, tx *state.PartitionTransaction, processedOffset *int64) error {
	var err error
	if processedOffset != nil {
		err = tx.Prepare(ctx, *processedOffset)
	} else {
		err = tx.PrepareWithoutOffset(ctx)
	}
	if err != nil {
		return err
	}
	var changelogOffset *int64
	if h.Producer != nil {
		if off := h.Producer.Offset(); off > 0 {
			changelogOffset = state.Offset(off)
		}
	}
	return tx.Flush(ctx, processedOffset, changelogOffset)
}

// Update runs fn in a new transaction and commits it for processedOffset when
// fn succeeds.
func (h *Handle) Update(ctx context.Context, processedOffset *int64, fn func(tx *state.PartitionTransaction) error) error {
	tx := h.Begin()
	if err := fn(tx); err != nil {
		return err
	}
	if tx.Failed() {
		return nil
	}
	return h.Commit(ctx, tx, processedOffset)
}
