// Command receipt-processor serves the receipt API: receipts are stored under
// generated ids and scored for loyalty points on first request.
//
// Configuration comes from the environment (optionally seeded from a .env
// file); see internal/config for the variables.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/receipt-processor/internal/config"
	httpapi "github.com/tbourn/receipt-processor/internal/http"
	"github.com/tbourn/receipt-processor/internal/observability"
	"github.com/tbourn/receipt-processor/internal/services"
	"github.com/tbourn/receipt-processor/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	log.Logger = sysutil.NewLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)
	gin.SetMode(cfg.GinMode)

	if err := run(cfg, sysutil.Version(version)); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()

	ledger := services.NewLedger(store)
	r := gin.New()
	httpapi.RegisterRoutes(r, ledger, store, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("store", cfg.Store.Backend).
			Str("base_path", cfg.APIBasePath).
			Msg("listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
