package partition

import (
	"context"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"

	"github.com/rzbill/stateflo/internal/state"
)

// ErrInvalidColumnFamily is returned for column family names the key layout
// cannot represent.
var ErrInvalidColumnFamily = errors.New("invalid column family name")

// Partition is a persistent state partition usable by state transactions.
type Partition interface {
	state.Partition
	// Store returns the name of the store this partition belongs to.
	Store() string
	// ID returns the partition number.
	ID() int32
	// ProcessedOffset returns the last durably recorded source offset, if any.
	ProcessedOffset() (int64, bool, error)
	// Scan calls fn for every key in cf starting with prefix, in key order.
	Scan(ctx context.Context, cf string, prefix []byte, fn func(key, value []byte) error) error
}

// ValidateColumnFamily rejects empty names, names containing '/' and the
// reserved metadata bucket name.
func ValidateColumnFamily(cf string) error {
	if cf == "" || strings.ContainsRune(cf, '/') || cf == metaBucket {
		return errors.Wrapf(ErrInvalidColumnFamily, "%q", cf)
	}
	return nil
}

func encodeOffset(v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return b[:]
}

func decodeOffset(b []byte) (int64, bool) {
	if len(b) < 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b[:8])), true
}
