package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Banking-Assistant/api"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API over HTTP",
	Long: `Starts the HTTP API:
  POST /chat     {"conversationId"?, "role"?, "text"}
  GET  /healthz`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	server := api.NewServer(api.ServerConfig{
		Addr:              app.cfg.ListenAddr,
		ReadHeaderTimeout: app.cfg.ReadHeaderTimeout,
		WriteTimeout:      app.cfg.WriteTimeout,
	}, api.NewRouter(api.NewHandler(app.orchestrator)))
	janitor := statex.NewJanitor(app.sessions, app.cfg.SweepInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return janitor.Run(gctx) })
	return g.Wait()
}
