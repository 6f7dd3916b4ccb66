package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/guillermoBallester/tabletalk/internal/adapter/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the table tools over MCP (stdio or HTTP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			logger.Info("starting tabletalk",
				slog.String("version", version),
				slog.String("log_level", cfg.LogLevel.String()),
				slog.String("dataset.source", cfg.Source),
				slog.Int("max_rows", cfg.MaxRows),
				slog.String("query_timeout", cfg.QueryTimeout.String()),
				slog.String("transport", cfg.Transport),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := a.close(shutdownCtx); err != nil {
					logger.Error("shutdown", slog.String("error", err.Error()))
				}
			}()

			mcpServer := mcp.NewServer(version, a.mcpDeps(), logger, a.tracer, a.inst)

			if cfg.Transport == "http" {
				return serveHTTP(ctx, mcpServer, cfg.HTTPAddr, cfg.HTTPBearerToken, logger)
			}

			logger.Info("serving MCP over stdio")
			if err := mcpserver.NewStdioServer(mcpServer).Listen(ctx, os.Stdin, os.Stdout); err != nil &&
				!errors.Is(err, context.Canceled) {
				return fmt.Errorf("stdio server: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}

// newRouter mounts the streamable MCP endpoint behind bearer auth, plus an
// unauthenticated health probe.
func newRouter(mcpServer *mcpserver.MCPServer, token string, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.Handle("/mcp", bearerAuthMiddleware(mcpserver.NewStreamableHTTPServer(mcpServer), token))
	return recoveryMiddleware(r, logger)
}

func serveHTTP(ctx context.Context, mcpServer *mcpserver.MCPServer, addr, token string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(mcpServer, token, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving MCP over HTTP", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
