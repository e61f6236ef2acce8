package statecmd

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"unicode/utf8"
)

var errStopScan = errors.New("stop scan")

// parseValue returns s as raw JSON when it is valid JSON, else as a string.
func parseValue(s string) any {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return s
}

// decodedBytes renders b as JSON when it parses, as text when it is valid
// UTF-8, and as base64 otherwise, under "<name>_json", "<name>_text" or
// "<name>_b64".
func decodedBytes(out map[string]any, name string, b []byte) {
	if len(b) > 0 && json.Valid(b) {
		out[name+"_json"] = json.RawMessage(b)
		return
	}
	if utf8.Valid(b) {
		out[name+"_text"] = string(b)
		return
	}
	out[name+"_b64"] = base64.StdEncoding.EncodeToString(b)
}

// decodedEntry renders a stored key/value pair for printing.
func decodedEntry(key, value []byte) map[string]any {
	out := map[string]any{}
	decodedBytes(out, "key", key)
	decodedBytes(out, "value", value)
	return out
}
