package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	khttp "github.com/0xcro3dile/keyreply-go/internal/infrastructure/http"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat UI and API over HTTP",
		Long: `Starts the web UI and JSON/SSE API.

  POST /api/message   stream the echo and reply segments (204 when ignored)
  POST /api/upload    acknowledge a file by name
  GET  /api/match     score every entry for ?q=
  GET  /api/history   current session transcript
  GET  /api/events    SSE notifications (messages, resets)
  GET  /api/health    status
  GET  /metrics       Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := khttp.NewHub()
			a, err := newApp(ctx, c.cfg, c.logger, hub)
			if err != nil {
				return err
			}
			defer a.Close()

			a.restarter.OnReset(hub.SessionRestarted)
			a.watch(ctx)

			server, err := khttp.NewServer(a.controller, hub, a.registry, c.cfg.Server.Addr, c.logger)
			if err != nil {
				return err
			}
			return server.Start(ctx)
		},
	}
}
