package eventlog

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
)

// Record encoding:
//
//	uvarint keyLen | key | flags(1B) | uvarint valueLen | value | headers(JSON) | crc32c(all preceding)

const flagTombstone byte = 1 << 0

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Record is one changelog entry. A tombstone has no value.
type Record struct {
	Key       []byte
	Value     []byte
	Tombstone bool
	Headers   map[string]string
}

func EncodeRecord(r Record) ([]byte, error) {
	var headers []byte
	if len(r.Headers) > 0 {
		var err error
		if headers, err = json.Marshal(r.Headers); err != nil {
			return nil, err
		}
	}
	value := r.Value
	var flags byte
	if r.Tombstone {
		flags |= flagTombstone
		value = nil
	}

	out := make([]byte, 0, 2*binary.MaxVarintLen64+len(r.Key)+1+len(value)+len(headers)+4)
	out = binary.AppendUvarint(out, uint64(len(r.Key)))
	out = append(out, r.Key...)
	out = append(out, flags)
	out = binary.AppendUvarint(out, uint64(len(value)))
	out = append(out, value...)
	out = append(out, headers...)

	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc32.Checksum(out, castagnoli))
	return append(out, crcb[:]...), nil
}

// DecodeRecord parses and verifies an encoded record. ok is false for
// truncated or corrupted input.
func DecodeRecord(b []byte) (Record, bool) {
	if len(b) < 4 {
		return Record{}, false
	}
	body := b[:len(b)-4]
	if crc32.Checksum(body, castagnoli) != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return Record{}, false
	}

	klen, n := binary.Uvarint(body)
	if n <= 0 || uint64(len(body)-n) < klen+1 {
		return Record{}, false
	}
	pos := n
	key := body[pos : pos+int(klen)]
	pos += int(klen)
	flags := body[pos]
	pos++

	vlen, n := binary.Uvarint(body[pos:])
	if n <= 0 || uint64(len(body)-pos-n) < vlen {
		return Record{}, false
	}
	pos += n
	value := body[pos : pos+int(vlen)]
	pos += int(vlen)

	r := Record{Key: append([]byte(nil), key...), Tombstone: flags&flagTombstone != 0}
	if !r.Tombstone {
		r.Value = append([]byte{}, value...)
	}
	if pos < len(body) {
		if err := json.Unmarshal(body[pos:], &r.Headers); err != nil {
			return Record{}, false
		}
	}
	return r, true
}
