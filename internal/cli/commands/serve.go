package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/docapi/internal/app"
	"github.com/conduit-lang/docapi/internal/cli/ui"
	"github.com/conduit-lang/docapi/internal/logging"
	"github.com/conduit-lang/docapi/internal/web/server"
)

var (
	servePort int
	serveHost string
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured resources",
		Long: `Open the configured store and serve every declared resource over HTTP.

The server stops gracefully on SIGINT or SIGTERM: it stops accepting
connections, drains the tracking queue and closes the store.

Examples:
  docapi serve
  docapi serve --port 8080
  docapi serve --config ./deploy/docapi.yaml`,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides server.port)")
	cmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides server.host)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err, noColor))
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	srvConfig := server.DefaultConfig(a.Handler())
	srvConfig.Address = cfg.Server.Address()
	srvConfig.ReadTimeout = cfg.Server.ReadTimeout
	srvConfig.WriteTimeout = cfg.Server.WriteTimeout
	srvConfig.IdleTimeout = cfg.Server.IdleTimeout

	srv, err := server.New(srvConfig)
	if err != nil {
		a.Close(context.Background())
		return err
	}

	gs := server.NewGracefulShutdown(srv, &server.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	})
	gs.RegisterHook(a.Close)

	summary := ui.NewKeyValueTable(cmd.OutOrStdout(), noColor)
	summary.AddRow("Address", cfg.Server.Address())
	summary.AddRow("Store", cfg.Store.Driver)
	summary.AddRow("Resources", strconv.Itoa(len(a.Endpoints())))
	summary.AddRow("Routes", strconv.Itoa(len(a.Routes())))
	summary.Render()

	if err := gs.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	return nil
}
