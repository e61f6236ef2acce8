package eventlog

import (
	"context"
	"errors"
	"testing"

	pebblestore "github.com/rzbill/stateflo/internal/storage/pebble"
)

func seedLog(t *testing.T, n int) (*Log, []uint64) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	l, err := OpenLog(db, "ns", "t", 1)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	recs := make([]Record, n)
	for i := 0; i < n; i++ {
		recs[i] = Record{Key: []byte{'k', byte('0' + i)}, Value: []byte{byte(i)}}
	}
	seqs, err := l.Append(context.Background(), recs)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return l, seqs
}

func TestReadForward(t *testing.T) {
	l, seqs := seedLog(t, 5)
	items, next, err := l.Read(ReadOptions{Limit: 3})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("want 3 items, got %d", len(items))
	}
	if items[0].Seq != seqs[0] || items[2].Seq != seqs[2] {
		t.Fatalf("unexpected seqs")
	}
	if string(items[1].Key) != "k1" {
		t.Fatalf("unexpected key %q", items[1].Key)
	}
	if next.Seq() != seqs[3] {
		t.Fatalf("next token = %d, want %d", next.Seq(), seqs[3])
	}
}

func TestReadToEndReturnsZeroToken(t *testing.T) {
	l, _ := seedLog(t, 2)
	items, next, err := l.Read(ReadOptions{})
	if err != nil || len(items) != 2 {
		t.Fatalf("read = %d items, %v", len(items), err)
	}
	if next.Seq() != 0 {
		t.Fatalf("expected zero token at end, got %d", next.Seq())
	}
}

func TestReadReverse(t *testing.T) {
	l, seqs := seedLog(t, 4)
	items, _, err := l.Read(ReadOptions{Reverse: true, Limit: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("want 2, got %d", len(items))
	}
	if !(items[0].Seq == seqs[3] && items[1].Seq == seqs[2]) {
		t.Fatalf("unexpected reverse order")
	}
}

func TestReverseFromTokenIsInclusive(t *testing.T) {
	l, seqs := seedLog(t, 4)
	items, _, err := l.Read(ReadOptions{Reverse: true, Start: TokenFromSeq(seqs[1]), Limit: 5})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 2 || items[0].Seq != seqs[1] || items[1].Seq != seqs[0] {
		t.Fatalf("unexpected reverse items: %+v", items)
	}
}

func TestSeekByToken(t *testing.T) {
	l, seqs := seedLog(t, 4)
	items, _, err := l.Read(ReadOptions{Start: TokenFromSeq(seqs[2]), Limit: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) == 0 || items[0].Seq != seqs[2] {
		t.Fatalf("seek failed")
	}
}

// corruptEntry flips the last byte of the stored entry at seq.
func corruptEntry(t *testing.T, l *Log, seq uint64) {
	t.Helper()
	key := KeyLogEntry(l.namespace, l.topic, l.part, seq)
	raw, err := l.db.Get(key)
	if err != nil {
		t.Fatalf("get entry %d: %v", seq, err)
	}
	raw[len(raw)-1] ^= 0xff
	if err := l.db.Set(key, raw); err != nil {
		t.Fatalf("rewrite entry %d: %v", seq, err)
	}
}

func TestReadStopsAtCorruptEntry(t *testing.T) {
	l, seqs := seedLog(t, 4)
	corruptEntry(t, l, seqs[2])

	items, next, err := l.Read(ReadOptions{})
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("want ErrCorruptRecord, got %v", err)
	}
	var cerr *CorruptRecordError
	if !errors.As(err, &cerr) || cerr.Seq != seqs[2] {
		t.Fatalf("corrupt seq: %v", err)
	}
	if len(items) != 2 || items[1].Seq != seqs[1] {
		t.Fatalf("items before corruption: %+v", items)
	}
	if next.Seq() != seqs[2] {
		t.Fatalf("next token: got %d want %d", next.Seq(), seqs[2])
	}

	if _, _, err := l.Read(ReadOptions{Reverse: true}); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("reverse read: want ErrCorruptRecord, got %v", err)
	}
}
