package cli

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"practice-engine/internal/config"
	transport "practice-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the run host.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the practice run host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if cfg.Postgres.URL != "" && cfg.Scenario.Source != "api" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	router := transport.NewRouter(logger, transport.Routes{
		Practice: transport.NewWSHandler(st.service, logger),
		Tools:    transport.NewToolWSHandler(st.service, logger),
		Health:   transport.NewHealthHandler(logger, st.checks),
		Metrics:  st.metrics.Handler(),
	})
	server := transport.NewServer(":"+finalPort, logger, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting practice run host", "port", finalPort)
		return server.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		return server.Shutdown(context.Background())
	})
	return g.Wait()
}
