// Command signmock serves a simulated translation API for local development.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"sign-translator/internal/logging"
	"sign-translator/internal/mockapi"
)

type mockConfig struct {
	Environment  string        `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"debug"`
	Addr         string        `envconfig:"SIGNMOCK_ADDR" default:"127.0.0.1:8787"`
	PendingPolls int           `envconfig:"SIGNMOCK_PENDING_POLLS" default:"3"`
	BaseURL      string        `envconfig:"SIGNMOCK_BASE_URL"`
	FileName     string        `envconfig:"SIGNMOCK_FILE_NAME"`
	StatusCode   int           `envconfig:"SIGNMOCK_STATUS"`
	Latency      time.Duration `envconfig:"SIGNMOCK_LATENCY" default:"0s"`
}

func main() {
	var cfg mockConfig
	if err := envconfig.Process("", &cfg); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	api := mockapi.New(mockapi.Script{
		PendingPolls: cfg.PendingPolls,
		BaseURL:      cfg.BaseURL,
		FileName:     cfg.FileName,
		StatusCode:   cfg.StatusCode,
		Latency:      cfg.Latency,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", cfg.Addr).Int("pending_polls", cfg.PendingPolls).Msg("mock translation service listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("serve")
	}
	logger.Info().Int("requests", api.RequestCount()).Msg("mock translation service stopped")
}
