package log

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
)

// redactedValue replaces the value of every redacted field.
const redactedValue = "[REDACTED]"

// bridgeHandler is the slog.Handler behind every BaseLogger. It turns records
// into Entries and hands them to the logger's formatter and outputs.
type bridgeHandler struct {
	logger *BaseLogger
	attrs  Fields
	// groups are joined with "." in front of attribute keys.
	groups  string
	redact  map[string]struct{}
	sampler *sampler
}

func newBridgeHandler(logger *BaseLogger) *bridgeHandler {
	h := &bridgeHandler{logger: logger, sampler: logger.sampler}
	if len(logger.redact) > 0 {
		h.redact = make(map[string]struct{}, len(logger.redact))
		for _, k := range logger.redact {
			h.redact[k] = struct{}{}
		}
	}
	return h
}

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.level <= fromSlogLevel(level)
}

func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	if h.sampler != nil && !h.sampler.allow(r.Level, r.Message) {
		return nil
	}

	fields := make(Fields, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		h.put(fields, h.groups, a)
		return true
	})

	entry := &Entry{
		Level:     fromSlogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
		Caller:    callerOf(r.PC),
		Error:     h.logger.err,
	}
	formatted, err := h.logger.formatter.Format(entry)
	if err != nil {
		return err
	}
	for _, out := range h.logger.outputs {
		_ = out.Write(entry, formatted)
	}
	return nil
}

// put stores a under its qualified key, flattening group values and applying
// redaction to the unqualified key.
func (h *bridgeHandler) put(fields Fields, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = qualify(prefix, a.Key)
		}
		for _, ga := range v.Group() {
			h.put(fields, p, ga)
		}
		return
	}
	if _, ok := h.redact[a.Key]; ok {
		fields[qualify(prefix, a.Key)] = redactedValue
		return
	}
	fields[qualify(prefix, a.Key)] = v.Any()
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.attrs = make(Fields, len(h.attrs)+len(attrs))
	for k, v := range h.attrs {
		nh.attrs[k] = v
	}
	for _, a := range attrs {
		h.put(nh.attrs, h.groups, a)
	}
	return &nh
}

func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.groups = qualify(h.groups, name)
	return &nh
}

func qualify(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func callerOf(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return frame.File + ":" + strconv.Itoa(frame.Line)
}

// sampler lets the first `initial` records of each level and message through,
// then every `thereafter`-th one.
type sampler struct {
	mu         sync.Mutex
	initial    uint64
	thereafter uint64
	counts     map[string]uint64
}

func newSampler(initial, thereafter int) *sampler {
	if initial < 0 {
		initial = 0
	}
	if thereafter <= 0 {
		thereafter = 1
	}
	return &sampler{
		initial:    uint64(initial),
		thereafter: uint64(thereafter),
		counts:     make(map[string]uint64),
	}
}

func (s *sampler) allow(level slog.Level, message string) bool {
	key := level.String() + ":" + message
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.counts[key]
	s.counts[key] = n + 1
	if n < s.initial {
		return true
	}
	return (n-s.initial)%s.thereafter == 0
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel, FatalLevel:
		return slog.LevelError
	}
	return slog.LevelInfo
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level <= slog.LevelDebug:
		return DebugLevel
	case level < slog.LevelWarn:
		return InfoLevel
	case level < slog.LevelError:
		return WarnLevel
	}
	return ErrorLevel
}

func attrsFromMap(m Fields) []slog.Attr {
	if len(m) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, 0, len(m))
	for k, v := range m {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func attrsFromFieldSlice(fields []Field) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	return attrs
}
