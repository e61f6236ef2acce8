package statecmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/rzbill/stateflo/internal/config"
)

func newConfigCommand(g *globals) *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	configCmd.AddCommand(newConfigInitCommand(), newConfigShowCommand(g))
	return configCmd
}

// newConfigInitCommand constructs the `config init` subcommand.
func newConfigInitCommand() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("path")
			force, _ := cmd.Flags().GetBool("force")
			if path == "" {
				path = cfgpkg.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := cfgpkg.WriteFile(path, cfgpkg.Default()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			return nil
		},
	}
	initCmd.Flags().String("path", "", "Destination file; the extension selects the format")
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")
	return initCmd
}

// newConfigShowCommand constructs the `config show` subcommand.
func newConfigShowCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
