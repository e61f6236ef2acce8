package eventlog

import (
	"encoding/binary"
	"errors"

	pebblestore "github.com/rzbill/stateflo/internal/storage/pebble"
)

// CommitCursor stores the last consumed token for a group idempotently.
// If the provided token is not beyond the stored one, the commit is ignored.
func (l *Log) CommitCursor(group string, tok Token) error {
	key := KeyCursor(l.namespace, l.topic, group, l.part)
	cur, err := l.db.Get(key)
	switch {
	case err == nil && len(cur) >= 8:
		if tok.Seq() <= binary.BigEndian.Uint64(cur[:8]) {
			return nil
		}
	case err != nil && !errors.Is(err, pebblestore.ErrNotFound):
		return err
	}
	return l.db.Set(key, tok[:])
}

// GetCursor loads the cursor token of a group.
func (l *Log) GetCursor(group string) (Token, bool) {
	cur, err := l.db.Get(KeyCursor(l.namespace, l.topic, group, l.part))
	if err != nil || len(cur) < 8 {
		return Token{}, false
	}
	var t Token
	copy(t[:], cur[:8])
	return t, true
}
