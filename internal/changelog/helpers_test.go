package changelog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/stateflo/internal/eventlog"
	"github.com/rzbill/stateflo/internal/partition"
	pebblestore "github.com/rzbill/stateflo/internal/storage/pebble"
)

type fixture struct {
	db        *pebblestore.DB
	log       *eventlog.Log
	partition *partition.Pebble
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	log, err := eventlog.OpenLog(db, "changelog", "changelog__counts", 0)
	require.NoError(t, err)
	return &fixture{db: db, log: log, partition: partition.NewPebble(db, "counts", 0)}
}

func readAll(t *testing.T, log *eventlog.Log) []eventlog.Item {
	t.Helper()
	items, _, err := log.Read(eventlog.ReadOptions{})
	require.NoError(t, err)
	return items
}
