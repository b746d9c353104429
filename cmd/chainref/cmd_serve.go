package main

import (
	"github.com/spf13/cobra"

	chttp "github.com/aitoolsintegration-prog/chainref/internal/infrastructure/http"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and state API",
		Long: `serve exposes the query controller over HTTP:

  POST /api/ask            submit {"question","theme"}
  GET  /api/state          current state as JSON
  GET  /api/state/stream   server-sent events, one per state change
  GET  /api/health         liveness

It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			controller := a.newController()
			server := chttp.NewServer(controller, a.cfg.Query.DefaultTheme, a.logger.Named("server"), addr)

			err := server.Start(cmd.Context())
			// Closing the controller ends open state streams.
			controller.Close()
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}
