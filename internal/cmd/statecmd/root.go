package statecmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "github.com/rzbill/stateflo/internal/config"
	"github.com/rzbill/stateflo/internal/runtime"
	logpkg "github.com/rzbill/stateflo/pkg/log"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	dataDir    string
	backend    string
	logLevel   string
	logFormat  string
}

func (g *globals) bind(fs *pflag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "Config file (.json, .hujson, .yaml, .toml)")
	fs.StringVar(&g.dataDir, "data-dir", "", "Data directory (overrides config)")
	fs.StringVar(&g.backend, "backend", "", "State backend: pebble|bolt (overrides config)")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	fs.StringVar(&g.logFormat, "log-format", "", "Log format: text|json")
}

// loadConfig resolves file, environment and flags in that order.
func (g *globals) loadConfig() (cfgpkg.Config, error) {
	cfg, err := cfgpkg.Load(g.configPath)
	if err != nil {
		return cfg, err
	}
	cfgpkg.FromEnv(&cfg)
	if g.dataDir != "" {
		cfg.DataDir = g.dataDir
	}
	if g.backend != "" {
		cfg.Backend = g.backend
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	return cfg, cfg.Validate()
}

// runtimeOptions loads the configuration, installs the logger and returns
// the runtime options built from both.
func (g *globals) runtimeOptions() (runtime.Options, cfgpkg.Config, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return runtime.Options{}, cfg, err
	}
	logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Outputs: cfg.Log.Outputs})
	if err != nil {
		return runtime.Options{}, cfg, err
	}
	logpkg.RedirectStdLog(logger)
	opts, err := runtime.OptionsFromConfig(cfg)
	if err != nil {
		return runtime.Options{}, cfg, err
	}
	opts.Logger = logger
	return opts, cfg, nil
}

// openRuntime opens the runtime described by the configuration. The caller
// closes it.
func (g *globals) openRuntime() (*runtime.Runtime, error) {
	opts, _, err := g.runtimeOptions()
	if err != nil {
		return nil, err
	}
	return runtime.Open(opts)
}

// NewRoot constructs the stateflo root command.
func NewRoot() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "stateflo",
		Short:         "Transactional partition state with a changelog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.bind(root.PersistentFlags())
	root.AddCommand(
		newConfigCommand(g),
		newStateCommand(g),
		newChangelogCommand(g),
		newServeCommand(g),
	)
	return root
}
