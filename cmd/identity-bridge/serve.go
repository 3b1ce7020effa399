package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ajanottaja/identity-bridge/internal/bridge"
	"github.com/ajanottaja/identity-bridge/internal/logger"
	"github.com/ajanottaja/identity-bridge/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the webhook endpoints over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("Loaded configuration",
			zap.String("address", cfg.Server.Addr()),
			zap.Stringer("downstream", cfg.Downstream),
		)
		fx.New(appOptions(server.Module)...).Run()
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the operator tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var svc *bridge.Service
		app := fx.New(appOptions(fx.Populate(&svc))...)
		if err := app.Start(ctx); err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		defer func() {
			if err := app.Stop(context.Background()); err != nil {
				logger.Warn("Failed to stop cleanly", zap.Error(err))
			}
		}()

		return server.NewMCPServer(svc).ServeSTDIO(ctx)
	},
}
