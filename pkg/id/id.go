package id

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
	"time"
)

// ID is a 128-bit sortable identifier: [8 bytes unix ms][8 bytes sequence],
// both big-endian.
type ID [16]byte

// Zero is the unset ID.
var Zero ID

// Bytes returns a copy of the raw 16 bytes.
func (i ID) Bytes() []byte { return append([]byte(nil), i[:]...) }

// String returns the 32-character hex form.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// MarshalText implements encoding.TextMarshaler using the hex form.
func (i ID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Parse decodes the hex form produced by String.
func Parse(s string) (ID, error) {
	var out ID
	if hex.DecodedLen(len(s)) != len(out) {
		return Zero, fmt.Errorf("id: want %d hex characters, got %d", 2*len(out), len(s))
	}
	if _, err := hex.Decode(out[:], []byte(s)); err != nil {
		return Zero, fmt.Errorf("id: %w", err)
	}
	return out, nil
}

// IsZero reports whether i is the unset ID.
func (i ID) IsZero() bool { return i == Zero }

// Time returns the millisecond timestamp embedded in i.
func (i ID) Time() time.Time {
	return time.UnixMilli(int64(binary.BigEndian.Uint64(i[0:8])))
}

// Sequence returns the per-millisecond sequence embedded in i.
func (i ID) Sequence() uint64 { return binary.BigEndian.Uint64(i[8:16]) }

// Compare returns -1, 0 or 1; byte order is creation order.
func (i ID) Compare(other ID) int { return bytes.Compare(i[:], other[:]) }

// Generator produces strictly increasing IDs within a process.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch. Tests replace it.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID. A regressing clock keeps the last millisecond and
// bumps the sequence; sequence overflow waits for the next millisecond.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	switch {
	case ms != g.lastMs:
		g.sequence = 0
	case g.sequence == math.MaxUint64:
		for ms <= g.lastMs {
			time.Sleep(time.Millisecond / 8)
			ms = NowMs()
		}
		g.sequence = 0
	default:
		g.sequence++
	}

	g.lastMs = ms
	var out ID
	binary.BigEndian.PutUint64(out[0:8], uint64(ms))
	binary.BigEndian.PutUint64(out[8:16], g.sequence)
	return out
}
