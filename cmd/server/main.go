package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Reflector/internal/adapters/http"
	signaling "github.com/dkeye/Reflector/internal/adapters/signal"
	"github.com/dkeye/Reflector/internal/app"
	"github.com/dkeye/Reflector/internal/app/orch"
	"github.com/dkeye/Reflector/internal/config"
	"github.com/dkeye/Reflector/internal/metric"
	"github.com/dkeye/Reflector/internal/origin"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	level, _ := cfg.Level()
	zerolog.SetGlobalLevel(level)

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	reg := app.NewRegistry()
	var limiter *app.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = app.NewRateLimiter(cfg.RateLimit, cfg.RateInterval)
	}
	o := orch.New(reg, limiter, metric.New())

	ctl := signaling.NewSignalWSController(o, signaling.Options{
		ReadLimit:    cfg.ReadLimit,
		WriteTimeout: cfg.WriteTimeout,
		SendQueue:    cfg.SendQueue,
		CheckOrigin:  origin.NewPolicy(cfg.AllowedOrigins).CheckOrigin,
	})

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	// Bind before serving so a taken port fails startup instead of a goroutine.
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use: %w", cfg.Port, err)
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("Reflector signaling server started")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := ctl.CloseAll(shutdownCtx); err != nil {
		log.Warn().Err(err).Int("connections", ctl.Active()).Msg("connections still open after shutdown timeout")
	}
	return nil
}
