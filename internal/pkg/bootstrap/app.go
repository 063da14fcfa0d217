// Package bootstrap owns the HTTP server lifecycle shared by the service
// binaries: serve, wait for a signal, drain, shut down.
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockpile/internal/pkg/logger"
)

// AppInfo describes one service instance.
type AppInfo struct {
	ServiceName     string
	Addr            string
	ShutdownTimeout time.Duration
	// RegisterHandlers lets the service attach its routes.
	RegisterHandlers func(mux *http.ServeMux)
	// OnShutdown runs before the HTTP server closes, inside the shutdown
	// deadline. Used to drain consumers and flush clients.
	OnShutdown func(ctx context.Context)
}

// StartService serves HTTP until SIGINT/SIGTERM, then drains gracefully.
func StartService(info AppInfo) {
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(mux)
	}
	server := &http.Server{Addr: info.Addr, Handler: mux}

	go func() {
		logger.Ctx(context.Background()).Info().
			Str("addr", info.Addr).
			Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Ctx(context.Background()).Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Ctx(context.Background()).Info().Msgf("shutting down %s", info.ServiceName)

	timeout := info.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if info.OnShutdown != nil {
		info.OnShutdown(ctx)
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("http server shutdown failed")
	}
	logger.Ctx(ctx).Info().Msgf("%s stopped", info.ServiceName)
}
