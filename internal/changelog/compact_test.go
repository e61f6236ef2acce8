package changelog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/stateflo/internal/partition"
	"github.com/rzbill/stateflo/internal/state"
)

func TestCompactKeepsStateRecoverable(t *testing.T) {
	f := newFixture(t)
	for i := int64(1); i <= 3; i++ {
		n := i
		produceUpdates(t, f, n, func(tx *state.PartitionTransaction) {
			require.NoError(t, tx.Set("counter", n, nil, state.DefaultColumnFamily))
			require.NoError(t, tx.Set("counter", n, nil, "shadow"))
		})
	}
	produceUpdates(t, f, 4, func(tx *state.PartitionTransaction) {
		require.NoError(t, tx.Delete("counter", nil, "shadow"))
	})

	deleted, err := Compact(context.Background(), f.log, nil)
	require.NoError(t, err)
	require.Equal(t, 5, deleted)
	require.Len(t, readAll(t, f.log), 2)

	fresh := partition.NewPebble(f.db, "counts-replica", 0)
	_, err = Recover(context.Background(), f.log, fresh, RecoverOptions{})
	require.NoError(t, err)
	v, err := fresh.Get(state.DefaultColumnFamily, []byte(`"counter"`))
	require.NoError(t, err)
	require.Equal(t, "3", string(v))
	ok, err := fresh.Exists("shadow", []byte(`"counter"`))
	require.NoError(t, err)
	require.False(t, ok)

	// the tombstone is applied to the source partition and can go
	deleted, err = Compact(context.Background(), f.log, f.partition)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
	require.Len(t, readAll(t, f.log), 1)
}
