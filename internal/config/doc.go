// Package config provides loading, validation and environment overlay for
// stateflo configuration. It exposes a Default() baseline; files may be JSON
// (with comments via HuJSON), YAML or TOML.
//
// Example:
//
//	cfg, err := config.Load("/etc/stateflo.yaml")
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* handle */ }
//	rt, _ := runtime.Open(runtime.OptionsFromConfig(cfg))
//	defer rt.Close()
package config
