package cli

import (
	"github.com/spf13/cobra"

	bettercover "github.com/menta2k/better-cover"
	"github.com/menta2k/better-cover/pkg/server"
)

// newServeCmd creates the serve command, which runs the JSON HTTP API until
// the command context is cancelled
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start an HTTP server exposing the layout engine:

  GET  /healthz     health check
  POST /v1/solve    transform for one image
  POST /v1/layout   active source and transform for a picture on a screen`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg := configFromContext(ctx)

			if addr == "" {
				addr = cfg.Server.Addr
			}

			engine := bettercover.New(
				bettercover.WithSearchOptions(cfg.Solver),
				bettercover.WithLogger(logger),
			)
			return server.New(engine, logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}
