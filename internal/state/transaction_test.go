package state

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func newTestTx(p Partition, producer ChangelogProducer) *PartitionTransaction {
	opts := Options{}
	if producer != nil {
		opts.Producer = producer
	}
	return NewPartitionTransaction(p, opts)
}

func TestGetReadsThroughToPartition(t *testing.T) {
	p := newFakePartition()
	p.seed(DefaultColumnFamily, mustJSON(t, "a"), mustJSON(t, 1))
	tx := newTestTx(p, nil)

	var got int
	found, err := tx.Get("a", nil, DefaultColumnFamily, &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, got)

	exists, err := tx.Exists("a", nil, DefaultColumnFamily)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestGetMissingKeepsDefault(t *testing.T) {
	tx := newTestTx(newFakePartition(), nil)

	got := 42
	found, err := tx.Get("missing", nil, DefaultColumnFamily, &got)
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, 42, got)
}

func TestSetThenGetReadsOwnWrite(t *testing.T) {
	p := newFakePartition()
	p.seed(DefaultColumnFamily, mustJSON(t, "a"), mustJSON(t, 1))
	tx := newTestTx(p, nil)

	require.NoError(t, tx.Set("a", 2, nil, DefaultColumnFamily))
	readsBefore := p.reads

	var got int
	found, err := tx.Get("a", nil, DefaultColumnFamily, &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 2, got)

	exists, err := tx.Exists("a", nil, DefaultColumnFamily)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, readsBefore, p.reads, "partition must not be consulted for a written key")
}

func TestDeleteShadowsStoredValue(t *testing.T) {
	p := newFakePartition()
	p.seed(DefaultColumnFamily, mustJSON(t, "a"), mustJSON(t, 1))
	tx := newTestTx(p, nil)

	require.NoError(t, tx.Delete("a", nil, DefaultColumnFamily))

	got := -1
	found, err := tx.Get("a", nil, DefaultColumnFamily, &got)
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, -1, got)

	exists, err := tx.Exists("a", nil, DefaultColumnFamily)
	require.NoError(t, err)
	require.False(t, exists)
	require.Zero(t, p.reads)
}

func TestDeleteIsIdempotent(t *testing.T) {
	p := newFakePartition()
	p.seed(DefaultColumnFamily, mustJSON(t, "a"), mustJSON(t, 1))
	tx := newTestTx(p, nil)

	require.NoError(t, tx.Delete("a", nil, DefaultColumnFamily))
	require.NoError(t, tx.Delete("a", nil, DefaultColumnFamily))
	require.NoError(t, tx.Delete("never-existed", nil, DefaultColumnFamily))
	require.Equal(t, 2, tx.cache.Len())

	require.NoError(t, tx.Flush(context.Background(), nil, nil))
	_, ok := p.lookup(DefaultColumnFamily, mustJSON(t, "a"))
	require.False(t, ok)
}

func TestPrefixesAndColumnFamiliesAreIsolated(t *testing.T) {
	p := newFakePartition()
	tx := newTestTx(p, nil)

	require.NoError(t, tx.Set("k", 1, []byte("p1"), DefaultColumnFamily))
	require.NoError(t, tx.Set("k", 2, []byte("p2"), DefaultColumnFamily))
	require.NoError(t, tx.Set("k", 3, []byte("p1"), "windows"))

	var v int
	_, err := tx.Get("k", []byte("p2"), DefaultColumnFamily, &v)
	require.NoError(t, err)
	require.Equal(t, 2, v)
	found, err := tx.Get("k", nil, DefaultColumnFamily, &v)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, tx.Flush(context.Background(), nil, nil))
	stored, ok := p.lookup(DefaultColumnFamily, []byte(`p1|"k"`))
	require.True(t, ok)
	require.Equal(t, "1", string(stored))
	stored, ok = p.lookup("windows", []byte(`p1|"k"`))
	require.True(t, ok)
	require.Equal(t, "3", string(stored))
}

func TestSetSerializationFailureFailsTransaction(t *testing.T) {
	p := newFakePartition()
	tx := newTestTx(p, nil)

	err := tx.Set("k", make(chan int), nil, DefaultColumnFamily)
	var serr *SerializationError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "value", serr.What)
	require.Equal(t, StatusFailed, tx.Status())
	require.True(t, tx.Failed())

	_, err = tx.Get("k", nil, DefaultColumnFamily, new(int))
	require.ErrorIs(t, err, ErrInvalidTransactionState)
	require.ErrorIs(t, tx.Flush(context.Background(), nil, nil), ErrInvalidTransactionState)
	require.Zero(t, p.writes)
}

func TestDeleteKeySerializationFailureFailsTransaction(t *testing.T) {
	tx := newTestTx(newFakePartition(), nil)

	err := tx.Delete(make(chan int), nil, DefaultColumnFamily)
	var serr *SerializationError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "key", serr.What)
	require.Equal(t, StatusFailed, tx.Status())
}

func TestCustomCodecFailureFailsTransaction(t *testing.T) {
	boom := errors.New("boom")
	codec := CodecFuncs{
		SerializeFunc:   func(any) ([]byte, error) { return nil, boom },
		DeserializeFunc: func([]byte, any) error { return nil },
	}
	tx := NewPartitionTransaction(newFakePartition(), Options{Codec: codec})

	err := tx.Set("k", "v", nil, DefaultColumnFamily)
	require.ErrorIs(t, err, boom)
	require.True(t, tx.Failed())
}

func TestOperationsRejectedAfterPrepare(t *testing.T) {
	p := newFakePartition()
	tx := newTestTx(p, nil)
	require.NoError(t, tx.Set("a", 1, nil, DefaultColumnFamily))
	require.NoError(t, tx.Prepare(context.Background(), 1))
	require.True(t, tx.Prepared())

	require.ErrorIs(t, tx.Set("b", 2, nil, DefaultColumnFamily), ErrInvalidTransactionState)
	require.ErrorIs(t, tx.Delete("a", nil, DefaultColumnFamily), ErrInvalidTransactionState)
	_, err := tx.Get("a", nil, DefaultColumnFamily, new(int))
	require.ErrorIs(t, err, ErrInvalidTransactionState)
	_, err = tx.Exists("a", nil, DefaultColumnFamily)
	require.ErrorIs(t, err, ErrInvalidTransactionState)
	require.ErrorIs(t, tx.Prepare(context.Background(), 1), ErrInvalidTransactionState)

	// rejected calls have no side effect on the status
	require.Equal(t, StatusPrepared, tx.Status())
	require.NoError(t, tx.Flush(context.Background(), nil, nil))
	require.Equal(t, 1, p.writes)
}

func TestFlushTwiceRejected(t *testing.T) {
	p := newFakePartition()
	tx := newTestTx(p, nil)
	require.NoError(t, tx.Set("a", 1, nil, DefaultColumnFamily))
	require.NoError(t, tx.Flush(context.Background(), nil, nil))
	require.True(t, tx.Completed())

	require.ErrorIs(t, tx.Flush(context.Background(), nil, nil), ErrInvalidTransactionState)
	require.Equal(t, StatusComplete, tx.Status())
	require.Equal(t, 1, p.writes)
}

func TestFlushWithoutUpdatesDoesNoIO(t *testing.T) {
	p := newFakePartition()
	p.seed(DefaultColumnFamily, mustJSON(t, "a"), mustJSON(t, 1))
	tx := newTestTx(p, nil)

	_, err := tx.Get("a", nil, DefaultColumnFamily, new(int))
	require.NoError(t, err)
	require.NoError(t, tx.Flush(context.Background(), Offset(7), Offset(3)))

	require.True(t, tx.Completed())
	require.Zero(t, p.writes)
	require.Nil(t, p.processedOffset)
	require.Nil(t, p.changelogOffset)
}

func TestFlushRejectsChangelogOffsetRegression(t *testing.T) {
	p := newFakePartition()
	p.seed(DefaultColumnFamily, mustJSON(t, "a"), mustJSON(t, 1))
	p.changelogOffset = Offset(10)
	tx := newTestTx(p, nil)

	require.NoError(t, tx.Set("a", 2, nil, DefaultColumnFamily))
	err := tx.Flush(context.Background(), Offset(100), Offset(5))
	require.ErrorIs(t, err, ErrInvalidChangelogOffset)
	require.True(t, tx.Failed())

	require.Zero(t, p.writes)
	require.Equal(t, int64(10), *p.changelogOffset)
	stored, _ := p.lookup(DefaultColumnFamily, mustJSON(t, "a"))
	require.Equal(t, "1", string(stored))
}

func TestFlushAcceptsEqualChangelogOffset(t *testing.T) {
	p := newFakePartition()
	p.changelogOffset = Offset(10)
	tx := newTestTx(p, nil)

	require.NoError(t, tx.Set("a", 2, nil, DefaultColumnFamily))
	require.NoError(t, tx.Flush(context.Background(), Offset(3), Offset(10)))
	require.Equal(t, int64(3), *p.processedOffset)
	require.Equal(t, int64(10), *p.changelogOffset)
}

func TestFlushWriteErrorFailsTransaction(t *testing.T) {
	p := newFakePartition()
	p.writeErr = errors.New("disk full")
	tx := newTestTx(p, nil)

	require.NoError(t, tx.Set("a", 1, nil, DefaultColumnFamily))
	err := tx.Flush(context.Background(), nil, nil)
	require.ErrorIs(t, err, p.writeErr)
	require.True(t, tx.Failed())
}

func TestPrepareAndFlushEndToEnd(t *testing.T) {
	p := newFakePartition()
	producer := &fakeProducer{name: "changelog__counts", part: 3}
	tx := newTestTx(p, producer)
	ctx := context.Background()

	require.NoError(t, tx.Set("a", 1, nil, DefaultColumnFamily))
	require.NoError(t, tx.Set("b", 2, nil, DefaultColumnFamily))
	require.NoError(t, tx.Delete("a", nil, DefaultColumnFamily))
	require.NoError(t, tx.Prepare(ctx, 10))
	require.NoError(t, tx.Flush(ctx, Offset(10), Offset(5)))

	require.Equal(t, map[string]map[string][]byte{
		DefaultColumnFamily: {`"b"`: []byte("2")},
	}, p.data)
	require.Equal(t, int64(10), *p.processedOffset)
	require.Equal(t, int64(5), *p.changelogOffset)

	headers := map[string]string{HeaderColumnFamily: DefaultColumnFamily, HeaderProcessedOffset: "10"}
	want := []producedRecord{
		{Key: []byte(`"a"`), Value: nil, Headers: headers},
		{Key: []byte(`"b"`), Value: []byte("2"), Headers: headers},
	}
	if diff := cmp.Diff(want, producer.records, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("changelog records (-want +got):\n%s", diff)
	}
	require.Nil(t, producer.records[0].Value, "tombstone must carry a nil value")
}

func TestPrepareWithoutProducer(t *testing.T) {
	p := newFakePartition()
	tx := newTestTx(p, nil)

	_, ok := tx.ChangelogTopicPartition()
	require.False(t, ok)
	require.NoError(t, tx.Set("a", 1, nil, DefaultColumnFamily))
	require.NoError(t, tx.Prepare(context.Background(), 10))
	require.NoError(t, tx.Flush(context.Background(), Offset(10), nil))
	require.True(t, tx.Completed())
	require.Equal(t, 1, p.writes)
}

func TestFlushFromStartedSkipsChangelog(t *testing.T) {
	p := newFakePartition()
	producer := &fakeProducer{name: "cl", part: 0}
	tx := newTestTx(p, producer)

	require.NoError(t, tx.Set("a", 1, nil, DefaultColumnFamily))
	require.NoError(t, tx.Flush(context.Background(), nil, nil))
	require.Empty(t, producer.records)
	require.Equal(t, 1, p.writes)
}

func TestPrepareProducerErrorFailsTransaction(t *testing.T) {
	p := newFakePartition()
	producer := &fakeProducer{name: "cl", err: errors.New("broker down")}
	tx := newTestTx(p, producer)

	require.NoError(t, tx.Set("a", 1, nil, DefaultColumnFamily))
	err := tx.Prepare(context.Background(), 1)
	require.ErrorIs(t, err, producer.err)
	require.True(t, tx.Failed())
	require.ErrorIs(t, tx.Flush(context.Background(), nil, nil), ErrInvalidTransactionState)
	require.Zero(t, p.writes)
}

func TestPrepareStopsOnCancelledContext(t *testing.T) {
	producer := &fakeProducer{name: "cl"}
	tx := newTestTx(newFakePartition(), producer)
	require.NoError(t, tx.Set("a", 1, nil, DefaultColumnFamily))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, tx.Prepare(ctx, 1), context.Canceled)
	require.True(t, tx.Failed())
	require.Empty(t, producer.records)
}

func TestPrepareWithoutOffsetOmitsProcessedHeader(t *testing.T) {
	producer := &fakeProducer{name: "cl"}
	tx := newTestTx(newFakePartition(), producer)
	require.NoError(t, tx.Set("a", 1, nil, "windows"))
	require.NoError(t, tx.PrepareWithoutOffset(context.Background()))
	require.True(t, tx.Prepared())

	require.Len(t, producer.records, 1)
	require.Equal(t, map[string]string{HeaderColumnFamily: "windows"}, producer.records[0].Headers)
}

type batchingProducer struct {
	fakeProducer
	batches [][]ChangelogRecord
}

func (p *batchingProducer) ProduceBatch(_ context.Context, records []ChangelogRecord) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, records)
	return nil
}

func TestPrepareSendsOneBatchToBatchProducer(t *testing.T) {
	producer := &batchingProducer{fakeProducer: fakeProducer{name: "cl"}}
	tx := newTestTx(newFakePartition(), producer)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, tx.Set(k, 1, nil, DefaultColumnFamily))
	}
	require.NoError(t, tx.Delete("b", nil, DefaultColumnFamily))
	require.NoError(t, tx.Prepare(context.Background(), 4))

	require.Empty(t, producer.records, "Produce must not be used")
	require.Len(t, producer.batches, 1)
	batch := producer.batches[0]
	require.Len(t, batch, 3)
	require.Equal(t, []byte(`"b"`), batch[1].Key)
	require.Nil(t, batch[1].Value)
	require.Equal(t, "4", batch[2].Headers[HeaderProcessedOffset])
}

func TestChangelogTopicPartition(t *testing.T) {
	tx := newTestTx(newFakePartition(), &fakeProducer{name: "changelog__counts", part: 7})
	tp, ok := tx.ChangelogTopicPartition()
	require.True(t, ok)
	require.Equal(t, TopicPartition{Topic: "changelog__counts", Partition: 7}, tp)
}

func TestWithTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("flushes on success", func(t *testing.T) {
		p := newFakePartition()
		tx := newTestTx(p, nil)
		err := WithTransaction(ctx, tx, func(tx *PartitionTransaction) error {
			return tx.Set("a", 1, nil, DefaultColumnFamily)
		})
		require.NoError(t, err)
		require.True(t, tx.Completed())
		require.Equal(t, 1, p.writes)
	})

	t.Run("does not flush when fn fails", func(t *testing.T) {
		p := newFakePartition()
		tx := newTestTx(p, nil)
		boom := errors.New("boom")
		err := WithTransaction(ctx, tx, func(tx *PartitionTransaction) error {
			if err := tx.Set("a", 1, nil, DefaultColumnFamily); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, StatusStarted, tx.Status())
		require.Zero(t, p.writes)
	})

	t.Run("does nothing when already failed", func(t *testing.T) {
		p := newFakePartition()
		tx := newTestTx(p, nil)
		err := WithTransaction(ctx, tx, func(tx *PartitionTransaction) error {
			_ = tx.Set("a", make(chan int), nil, DefaultColumnFamily)
			return nil
		})
		require.NoError(t, err)
		require.True(t, tx.Failed())
		require.Zero(t, p.writes)
	})

	t.Run("surfaces flush errors", func(t *testing.T) {
		p := newFakePartition()
		p.writeErr = errors.New("disk full")
		tx := newTestTx(p, nil)
		err := WithTransaction(ctx, tx, func(tx *PartitionTransaction) error {
			return tx.Set("a", 1, nil, DefaultColumnFamily)
		})
		require.ErrorIs(t, err, p.writeErr)
		require.True(t, tx.Failed())
	})
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "STARTED", StatusStarted.String())
	require.Equal(t, "FAILED", StatusFailed.String())
	require.True(t, StatusComplete.Terminal())
	require.False(t, StatusPrepared.Terminal())
}
