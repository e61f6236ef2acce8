package changelog

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/rzbill/stateflo/internal/eventlog"
	"github.com/rzbill/stateflo/internal/state"
	logpkg "github.com/rzbill/stateflo/pkg/log"
)

// RecoverOptions tunes Recover.
type RecoverOptions struct {
	// BatchSize is the number of changelog records applied per partition write.
	// Defaults to 1000.
	BatchSize int
	Logger    logpkg.Logger
}

// Recover replays every record of log with an offset greater than the
// changelog offset stored in p. Each batch is written atomically together
// with the offset of its last record and, when present, the processed offset
// carried by the record headers. Records without a column family header are
// applied to the default column family. It returns the number of applied
// records.
func Recover(ctx context.Context, log *eventlog.Log, p state.Partition, opts RecoverOptions) (int, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	logger = logger.With(logpkg.Str("changelog", log.Topic()), logpkg.Int32(logpkg.PartitionKey, int32(log.Partition())))

	stored, ok, err := p.ChangelogOffset()
	if err != nil {
		return 0, err
	}
	start := uint64(1)
	if ok {
		start = uint64(stored) + 1
	}
	if start > log.LastSeq() {
		logger.Debug("changelog already applied", logpkg.Int64("changelog_offset", stored))
		return 0, nil
	}
	logger.Info("recovering state from changelog", logpkg.Uint64("from", start), logpkg.Uint64("to", log.LastSeq()))

	applied := 0
	tok := eventlog.TokenFromSeq(start)
	for {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		items, next, err := log.Read(eventlog.ReadOptions{Start: tok, Limit: opts.BatchSize})
		var corrupt *eventlog.CorruptRecordError
		if err != nil && !errors.As(err, &corrupt) {
			return applied, err
		}
		if len(items) == 0 && corrupt == nil {
			break
		}
		if len(items) > 0 {
			if err := applyBatch(ctx, p, items); err != nil {
				return applied, err
			}
			applied += len(items)
			logger.Debug("applied changelog batch", logpkg.Int("records", len(items)), logpkg.Uint64("changelog_offset", items[len(items)-1].Seq))
		}
		if corrupt != nil {
			logger.Error("changelog record is corrupt, recovery stopped", logpkg.Uint64("changelog_offset", corrupt.Seq), logpkg.Int("records", applied))
			return applied, errors.Wrapf(err, "recover stopped before changelog offset %d", corrupt.Seq)
		}

		if next.Seq() == 0 {
			break
		}
		tok = next
	}
	logger.Info("state recovered from changelog", logpkg.Int("records", applied))
	return applied, nil
}

// applyBatch writes items to p in one atomic write together with the offset
// of the last item.
func applyBatch(ctx context.Context, p state.Partition, items []eventlog.Item) error {
	batch := state.NewUpdateCache()
	var processed *int64
	for _, it := range items {
		cf := it.Headers[state.HeaderColumnFamily]
		if cf == "" {
			cf = state.DefaultColumnFamily
		}
		if it.Tombstone {
			batch.Delete(cf, nil, it.Key)
		} else {
			batch.Set(cf, nil, it.Key, it.Value)
		}
		if raw, ok := it.Headers[state.HeaderProcessedOffset]; ok {
			var off int64
			if err := json.Unmarshal([]byte(raw), &off); err != nil {
				return errors.Wrapf(err, "changelog offset %d: bad %s header %q", it.Seq, state.HeaderProcessedOffset, raw)
			}
			processed = state.Offset(off)
		}
	}
	last := items[len(items)-1].Seq
	if err := p.Write(ctx, batch, processed, state.Offset(int64(last))); err != nil {
		return errors.Wrapf(err, "changelog offset %d: apply batch", last)
	}
	return nil
}
