package statecmd

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rzbill/stateflo/internal/runtime"
	httpserver "github.com/rzbill/stateflo/internal/server/http"
)

// newServeCommand constructs the `serve` command.
func newServeCommand(g *globals) *cobra.Command {
	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API over the data directory until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, cfg, err := g.runtimeOptions()
			if err != nil {
				return err
			}

			var metrics http.Handler
			if cfg.Metrics.Enabled {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				opts.Registerer = reg
				metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
			}

			rt, err := runtime.Open(opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := httpserver.New(rt, opts.Logger, metrics).ListenAndServe(cmd.Context(), addr); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			opts.Logger.Info("shutdown complete")
			return nil
		},
	}
	serveCmd.Flags().StringVar(&addr, "http", ":8080", "HTTP listen address")
	return serveCmd
}
