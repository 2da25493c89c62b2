package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/flokiorg/userhub/http"
	"github.com/flokiorg/userhub/logger"
	"github.com/flokiorg/userhub/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := service.NewService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create service: %v\n", err)
		os.Exit(1)
	}
	defer svc.Shutdown()

	go cancelOnSignal(cancel)

	if err := serve(ctx, cancel, svc); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shutdown echo server")
	}
	logger.Logger.Info().Msg("Service exiting")
}

// cancelOnSignal cancels on SIGINT or SIGTERM. SIGPIPE is logged and ignored.
func cancelOnSignal(cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGPIPE)
	defer signal.Stop(signals)

	for sig := range signals {
		if sig == syscall.SIGPIPE {
			logger.Logger.Warn().Interface("signal", sig).Msg("Ignoring SIGPIPE signal")
			continue
		}
		logger.Logger.Info().Interface("signal", sig).Msg("Received OS signal")
		cancel()
		return
	}
}

// serve runs the API until ctx is cancelled, then shuts echo down.
func serve(ctx context.Context, cancel context.CancelFunc, svc service.Service) error {
	e := echo.New()
	http.NewHttpService(svc.GetConfig(), svc.GetStore()).RegisterSharedRoutes(e)

	addr := fmt.Sprintf(":%v", svc.GetConfig().GetEnv().Port)
	logger.Logger.Info().Str("addr", addr).Msg("Userhub starting in HTTP mode")

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Logger.Error().Err(err).Msg("echo server failed to start")
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down echo server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	return e.Shutdown(shutdownCtx)
}
