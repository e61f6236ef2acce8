package state

import "encoding/json"

// Codec converts keys and values to and from bytes. The same codec is used for
// keys and values of a transaction.
type Codec interface {
	Serialize(v any) ([]byte, error)
	// Deserialize decodes b into out, which must be a non-nil pointer.
	Deserialize(b []byte, out any) error
}

// JSONCodec encodes with encoding/json.
type JSONCodec struct{}

func (JSONCodec) Serialize(v any) ([]byte, error)    { return json.Marshal(v) }
func (JSONCodec) Deserialize(b []byte, out any) error { return json.Unmarshal(b, out) }

// CodecFuncs adapts a pair of functions to the Codec interface.
type CodecFuncs struct {
	SerializeFunc   func(v any) ([]byte, error)
	DeserializeFunc func(b []byte, out any) error
}

func (c CodecFuncs) Serialize(v any) ([]byte, error)    { return c.SerializeFunc(v) }
func (c CodecFuncs) Deserialize(b []byte, out any) error { return c.DeserializeFunc(b, out) }
