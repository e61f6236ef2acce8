package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// ErrCorruptRecord marks an entry that fails its checksum or cannot be decoded.
var ErrCorruptRecord = errors.New("eventlog: corrupt record")

// CorruptRecordError reports the sequence of a corrupt entry. It matches
// ErrCorruptRecord with errors.Is.
type CorruptRecordError struct {
	Seq uint64
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("%s at seq %d", ErrCorruptRecord, e.Seq)
}

func (e *CorruptRecordError) Is(target error) bool { return target == ErrCorruptRecord }

// Token encodes the starting position as seq (8 bytes big-endian).
type Token [8]byte

// TokenFromSeq returns the token positioned at seq.
func TokenFromSeq(seq uint64) Token { var t Token; binary.BigEndian.PutUint64(t[:], seq); return t }
func (t Token) Seq() uint64         { return binary.BigEndian.Uint64(t[:]) }

type ReadOptions struct {
	Start   Token // if zero, begin from the first entry
	Limit   int
	Reverse bool
}

// Item is a record together with its sequence (the changelog offset).
type Item struct {
	Seq uint64
	Record
}

// Read returns up to Limit items starting at Start (inclusive). Reverse scans
// descending. The returned token is the position of the next unread item, or
// zero when the scan reached the end.
//
// A corrupt entry stops the scan: the items before it are returned together
// with a *CorruptRecordError and a token positioned at the corrupt entry.
func (l *Log) Read(opts ReadOptions) ([]Item, Token, error) {
	startSeq := opts.Start.Seq()
	startKey := KeyLogEntry(l.namespace, l.topic, l.part, startSeq)
	low := KeyLogEntry(l.namespace, l.topic, l.part, 0)
	hi := KeyLogEntry(l.namespace, l.topic, l.part, ^uint64(0))

	items := make([]Item, 0, max(1, opts.Limit))
	var next Token
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return items, next, err
	}
	defer iter.Close()

	seqOf := func() uint64 { return binary.BigEndian.Uint64(iter.Key()[len(startKey)-8:]) }
	collect := func() error {
		rec, ok := DecodeRecord(iter.Value())
		if !ok {
			seq := seqOf()
			next = TokenFromSeq(seq)
			return &CorruptRecordError{Seq: seq}
		}
		items = append(items, Item{Seq: seqOf(), Record: rec})
		return nil
	}

	if opts.Reverse {
		var ok bool
		if startSeq == 0 {
			ok = iter.Last()
		} else {
			ok = iter.SeekLT(append(startKey, 0x00))
		}
		for ; ok && (opts.Limit == 0 || len(items) < opts.Limit); ok = iter.Prev() {
			if err := collect(); err != nil {
				return items, next, err
			}
		}
		if ok {
			next = TokenFromSeq(seqOf())
		}
		return items, next, iter.Error()
	}

	var ok bool
	if startSeq == 0 {
		ok = iter.First()
	} else {
		ok = iter.SeekGE(startKey)
	}
	for ; ok && (opts.Limit == 0 || len(items) < opts.Limit); ok = iter.Next() {
		if err := collect(); err != nil {
			return items, next, err
		}
	}
	if ok {
		next = TokenFromSeq(seqOf())
	}
	return items, next, iter.Error()
}
