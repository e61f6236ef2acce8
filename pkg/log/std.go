package log

import (
	"bytes"
	"fmt"
	stdlog "log"
)

type stdWriter struct {
	logger Logger
	level  Level
}

func (w stdWriter) Write(p []byte) (int, error) {
	msg := string(bytes.TrimRight(p, "\n"))
	switch w.level {
	case DebugLevel:
		w.logger.Debug(msg)
	case WarnLevel:
		w.logger.Warn(msg)
	case ErrorLevel, FatalLevel:
		w.logger.Error(msg)
	default:
		w.logger.Info(msg)
	}
	return len(p), nil
}

// ToStdLogger adapts l for libraries that expect a *log.Logger.
func ToStdLogger(l Logger, level Level) *stdlog.Logger {
	return stdlog.New(stdWriter{logger: l, level: level}, "", 0)
}

// RedirectStdLog sends output of the standard library logger to l at info level.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(stdWriter{logger: l.WithComponent("stdlog"), level: InfoLevel})
}

// PebbleLogger adapts l to pebble's Logger interface (Infof/Errorf/Fatalf).
type PebbleLogger struct {
	L Logger
}

func (p PebbleLogger) Infof(format string, args ...interface{}) {
	p.L.Info(fmt.Sprintf(format, args...))
}

func (p PebbleLogger) Errorf(format string, args ...interface{}) {
	p.L.Error(fmt.Sprintf(format, args...))
}

func (p PebbleLogger) Fatalf(format string, args ...interface{}) {
	p.L.Fatal(fmt.Sprintf(format, args...))
}
