package changelog

import (
	"context"

	"github.com/rzbill/stateflo/internal/eventlog"
	"github.com/rzbill/stateflo/internal/state"
)

// Identity is the compaction identity of a changelog record: its column
// family and key.
func Identity(r eventlog.Record) string {
	cf := r.Headers[state.HeaderColumnFamily]
	if cf == "" {
		cf = state.DefaultColumnFamily
	}
	return cf + "\x00" + string(r.Key)
}

// Compact removes changelog records superseded by a later record for the same
// column family and key. When p is given, tombstones already applied to it
// (offset at or below its changelog offset) are removed as well.
func Compact(ctx context.Context, log *eventlog.Log, p state.Partition) (int, error) {
	opts := eventlog.CompactOptions{Identity: Identity}
	if p != nil {
		off, ok, err := p.ChangelogOffset()
		if err != nil {
			return 0, err
		}
		if ok {
			opts.DropTombstonesBelow = uint64(off) + 1
		}
	}
	return log.Compact(ctx, opts)
}
