package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateBindsPrefix(t *testing.T) {
	p := newFakePartition()
	tx := NewPartitionTransaction(p, Options{})

	user1, err := tx.AsState("user-1")
	require.NoError(t, err)
	require.Equal(t, []byte(`"user-1"`), user1.Prefix())
	user2, err := tx.AsState([]byte("user-2"))
	require.NoError(t, err)

	require.NoError(t, user1.Set("count", 1))
	require.NoError(t, user2.Set("count", 5))

	var n int
	found, err := user1.Get("count", &n)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, n)

	ok, err := user2.Exists("count")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, user2.Delete("count"))
	ok, err = user2.Exists("count")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, tx.Flush(context.Background(), nil, nil))
	stored, ok := p.lookup(DefaultColumnFamily, []byte(`"user-1"|"count"`))
	require.True(t, ok)
	require.Equal(t, "1", string(stored))
	_, ok = p.lookup(DefaultColumnFamily, []byte(`user-2|"count"`))
	require.False(t, ok)
}

func TestStateWithoutPrefix(t *testing.T) {
	tx := NewPartitionTransaction(newFakePartition(), Options{})
	s, err := tx.AsState(nil)
	require.NoError(t, err)
	require.Nil(t, s.Prefix())

	require.NoError(t, s.Set("k", "v"))
	var v string
	found, err := tx.Get("k", nil, DefaultColumnFamily, &v)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v", v)
}

func TestAsStateRejectsUnserializablePrefix(t *testing.T) {
	tx := NewPartitionTransaction(newFakePartition(), Options{})
	_, err := tx.AsState(func() {})
	var serr *SerializationError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "prefix", serr.What)
	require.False(t, tx.Failed())
}
