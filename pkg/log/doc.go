// Package log provides stateflo's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that feeds our
// formatter/outputs pipeline.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("state"), log.Store("counts"), log.Partition(3))
//	l.Info("partition opened", log.Int64("changelog_offset", 42))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting JSON
// or text formatting and multiple outputs (console, file, null). Redaction and
// sampling are configured on the same struct.
//
// # Interop
//
// ToStdLogger and RedirectStdLog cover libraries writing to *log.Logger,
// PebbleLogger plugs into pebble.Options.Logger, and ZapOutput forwards
// entries to an existing *zap.Logger.
package log
