package state

// PrefixSeparator joins a non-empty prefix and the serialized key.
const PrefixSeparator = '|'

// prefixKey builds the storage key for key under prefix. An empty prefix adds
// no separator.
func prefixKey(prefix, key []byte) []byte {
	if len(prefix) == 0 {
		return append([]byte(nil), key...)
	}
	out := make([]byte, 0, len(prefix)+1+len(key))
	out = append(out, prefix...)
	out = append(out, PrefixSeparator)
	out = append(out, key...)
	return out
}
