package log

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// ConsoleOutput writes formatted entries to stderr (or W when set).
type ConsoleOutput struct {
	W  io.Writer
	mu sync.Mutex
}

// NewConsoleOutput returns an output writing to stderr.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{W: os.Stderr} }

func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.W
	if w == nil {
		w = os.Stderr
	}
	_, err := w.Write(formatted)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// FileOutput appends formatted entries to a file.
type FileOutput struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileOutput opens (or creates) path for appending.
func NewFileOutput(path string) (*FileOutput, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{f: f}, nil
}

func (o *FileOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.f.Write(formatted)
	return err
}

func (o *FileOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.f.Close()
}

// NullOutput drops everything.
type NullOutput struct{}

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }

// ZapOutput forwards entries to a zap logger, ignoring the formatted bytes.
// It lets stateflo components log into a host process that already runs zap.
type ZapOutput struct {
	z *zap.Logger
}

// NewZapOutput wraps z. A nil logger falls back to zap.NewNop().
func NewZapOutput(z *zap.Logger) *ZapOutput {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapOutput{z: z}
}

func (o *ZapOutput) Write(entry *Entry, _ []byte) error {
	fields := make([]zap.Field, 0, len(entry.Fields)+1)
	for k, v := range entry.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}
	switch entry.Level {
	case DebugLevel:
		o.z.Debug(entry.Message, fields...)
	case InfoLevel:
		o.z.Info(entry.Message, fields...)
	case WarnLevel:
		o.z.Warn(entry.Message, fields...)
	default:
		o.z.Error(entry.Message, fields...)
	}
	return nil
}

func (o *ZapOutput) Close() error {
	_ = o.z.Sync()
	return nil
}
