package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Config is a declarative logger description, usually filled from
// configuration files or STATEFLO_LOG_* environment variables.
type Config struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
	// Outputs lists sinks: "console" (default), "null", "zap" (zap production
	// JSON logger on stderr) or "file:<path>".
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty" toml:"outputs,omitempty"`
	// Redact lists field keys whose values are masked.
	Redact []string `json:"redact,omitempty" yaml:"redact,omitempty" toml:"redact,omitempty"`
	// SampleInitial/SampleThereafter enable per-message sampling when SampleThereafter > 0.
	SampleInitial    int `json:"sampleInitial,omitempty" yaml:"sampleInitial,omitempty" toml:"sampleInitial,omitempty"`
	SampleThereafter int `json:"sampleThereafter,omitempty" yaml:"sampleThereafter,omitempty" toml:"sampleThereafter,omitempty"`
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := []LoggerOption{WithLevel(level)}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		opts = append(opts, WithFormatter(&TextFormatter{}))
	case "json":
		opts = append(opts, WithFormatter(&JSONFormatter{}))
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	for _, o := range cfg.Outputs {
		switch {
		case o == "console":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case o == "null":
			opts = append(opts, WithOutput(&NullOutput{}))
		case o == "zap":
			z, err := zap.NewProduction()
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithOutput(NewZapOutput(z)))
		case strings.HasPrefix(o, "file:"):
			fo, err := NewFileOutput(strings.TrimPrefix(o, "file:"))
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithOutput(fo))
		default:
			return nil, fmt.Errorf("unknown log output %q", o)
		}
	}
	if len(cfg.Redact) > 0 {
		opts = append(opts, WithRedactions(cfg.Redact...))
	}
	opts = append(opts, WithSampling(cfg.SampleInitial, cfg.SampleThereafter))
	return NewLogger(opts...), nil
}
