package changelog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/stateflo/internal/eventlog"
	"github.com/rzbill/stateflo/internal/partition"
	"github.com/rzbill/stateflo/internal/state"
)

func produceUpdates(t *testing.T, f *fixture, processed int64, fn func(tx *state.PartitionTransaction)) {
	t.Helper()
	ctx := context.Background()
	producer := NewProducer(f.log)
	tx := state.NewPartitionTransaction(f.partition, state.Options{Producer: producer})
	fn(tx)
	require.NoError(t, tx.Prepare(ctx, processed))
	require.NoError(t, tx.Flush(ctx, state.Offset(processed), state.Offset(producer.Offset())))
}

func TestRecoverRebuildsFreshPartition(t *testing.T) {
	f := newFixture(t)
	produceUpdates(t, f, 10, func(tx *state.PartitionTransaction) {
		require.NoError(t, tx.Set("a", 1, nil, state.DefaultColumnFamily))
		require.NoError(t, tx.Set("b", 2, []byte("p"), "windows"))
	})
	produceUpdates(t, f, 11, func(tx *state.PartitionTransaction) {
		require.NoError(t, tx.Delete("a", nil, state.DefaultColumnFamily))
		require.NoError(t, tx.Set("c", 3, nil, state.DefaultColumnFamily))
	})

	fresh := partition.NewPebble(f.db, "counts-replica", 0)
	n, err := Recover(context.Background(), f.log, fresh, RecoverOptions{BatchSize: 3})
	require.NoError(t, err)
	require.Equal(t, 4, n)

	_, err = fresh.Get(state.DefaultColumnFamily, []byte(`"a"`))
	require.ErrorIs(t, err, state.ErrNotFound)
	v, err := fresh.Get("windows", []byte(`p|"b"`))
	require.NoError(t, err)
	require.Equal(t, "2", string(v))
	v, err = fresh.Get(state.DefaultColumnFamily, []byte(`"c"`))
	require.NoError(t, err)
	require.Equal(t, "3", string(v))

	off, ok, err := fresh.ChangelogOffset()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(4), off)
	processed, ok, err := fresh.ProcessedOffset()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(11), processed)
}

func TestRecoverSkipsAppliedRecords(t *testing.T) {
	f := newFixture(t)
	produceUpdates(t, f, 1, func(tx *state.PartitionTransaction) {
		require.NoError(t, tx.Set("a", 1, nil, state.DefaultColumnFamily))
	})

	n, err := Recover(context.Background(), f.log, f.partition, RecoverOptions{})
	require.NoError(t, err)
	require.Zero(t, n)

	// a record appended outside a transaction is picked up on the next recovery
	_, err = f.log.Append(context.Background(), []eventlog.Record{{Key: []byte(`"z"`), Value: []byte("26")}})
	require.NoError(t, err)
	n, err = Recover(context.Background(), f.log, f.partition, RecoverOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	v, err := f.partition.Get(state.DefaultColumnFamily, []byte(`"z"`))
	require.NoError(t, err)
	require.Equal(t, "26", string(v))
	processed, _, err := f.partition.ProcessedOffset()
	require.NoError(t, err)
	require.Equal(t, int64(1), processed, "records without the header leave the processed offset alone")
}

func TestRecoverRejectsMalformedProcessedOffset(t *testing.T) {
	f := newFixture(t)
	_, err := f.log.Append(context.Background(), []eventlog.Record{{
		Key:     []byte("k"),
		Value:   []byte("1"),
		Headers: map[string]string{state.HeaderProcessedOffset: "ten"},
	}})
	require.NoError(t, err)

	_, err = Recover(context.Background(), f.log, f.partition, RecoverOptions{})
	require.Error(t, err)
	_, ok, _ := f.partition.ChangelogOffset()
	require.False(t, ok)
}

func TestRecoverStopsBeforeCorruptRecord(t *testing.T) {
	f := newFixture(t)
	produceUpdates(t, f, 7, func(tx *state.PartitionTransaction) {
		require.NoError(t, tx.Set("a", 1, nil, state.DefaultColumnFamily))
		require.NoError(t, tx.Set("b", 2, nil, state.DefaultColumnFamily))
		require.NoError(t, tx.Set("c", 3, nil, state.DefaultColumnFamily))
	})

	key := eventlog.KeyLogEntry(f.log.Namespace(), f.log.Topic(), f.log.Partition(), 2)
	original, err := f.db.Get(key)
	require.NoError(t, err)
	damaged := append([]byte(nil), original...)
	damaged[len(damaged)-1] ^= 0xff
	require.NoError(t, f.db.Set(key, damaged))

	fresh := partition.NewPebble(f.db, "counts-replica", 0)
	n, err := Recover(context.Background(), f.log, fresh, RecoverOptions{})
	require.ErrorIs(t, err, eventlog.ErrCorruptRecord)
	require.Equal(t, 1, n)

	off, ok, err := fresh.ChangelogOffset()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), off, "offset must not move past the corrupt record")
	_, err = fresh.Get(state.DefaultColumnFamily, []byte(`"b"`))
	require.ErrorIs(t, err, state.ErrNotFound)

	// Once the record is repaired recovery resumes at it.
	require.NoError(t, f.db.Set(key, original))
	n, err = Recover(context.Background(), f.log, fresh, RecoverOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	v, err := fresh.Get(state.DefaultColumnFamily, []byte(`"b"`))
	require.NoError(t, err)
	require.Equal(t, "2", string(v))
	off, _, err = fresh.ChangelogOffset()
	require.NoError(t, err)
	require.Equal(t, int64(3), off)
}
