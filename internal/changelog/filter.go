package changelog

import (
	"encoding/json"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/stateflo/internal/eventlog"
	"github.com/rzbill/stateflo/internal/state"
)

// Filter wraps a compiled CEL program evaluated against changelog records.
// The zero Filter matches everything.
//
// Variables: cf, key, value (strings), json (value parsed as JSON, null when
// it is not JSON), tombstone (bool), offset and processed_offset (ints, -1
// when the header is missing) and headers (map of strings).
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles expr. An empty expression yields a Filter that matches
// every record.
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("cf", cel.StringType),
		cel.Variable("key", cel.StringType),
		cel.Variable("value", cel.StringType),
		cel.Variable("json", cel.DynType),
		cel.Variable("tombstone", cel.BoolType),
		cel.Variable("offset", cel.IntType),
		cel.Variable("processed_offset", cel.IntType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	prog, err := env.Program(ast)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Match reports whether it satisfies the filter. Evaluation errors and
// non-bool results count as no match.
func (f Filter) Match(it eventlog.Item) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	if !it.Tombstone {
		_ = json.Unmarshal(it.Value, &jsonObj)
	}
	headers := it.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	cf := headers[state.HeaderColumnFamily]
	if cf == "" {
		cf = state.DefaultColumnFamily
	}
	processed := int64(-1)
	if raw, ok := headers[state.HeaderProcessedOffset]; ok {
		_ = json.Unmarshal([]byte(raw), &processed)
	}
	out, _, err := f.prog.Eval(map[string]any{
		"cf":               cf,
		"key":              string(it.Key),
		"value":            string(it.Value),
		"json":             jsonObj,
		"tombstone":        it.Tombstone,
		"offset":           int64(it.Seq),
		"processed_offset": processed,
		"headers":          headers,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
