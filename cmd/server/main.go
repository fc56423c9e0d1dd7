// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command server runs the middleware HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stayapp/stay-middleware/internal/api"
	"github.com/stayapp/stay-middleware/internal/config"
	"github.com/stayapp/stay-middleware/internal/logging"
	"github.com/stayapp/stay-middleware/internal/strapi"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	// A local .env is optional; deployed environments set real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	clients := strapi.NewClients(strapi.Config{
		BaseURL:      cfg.Strapi.URL,
		ContentToken: cfg.Strapi.ContentAPIToken,
		UserToken:    cfg.Strapi.UserAPIToken,
		Timeout:      cfg.Strapi.Timeout,
		MaxConns:     cfg.Strapi.MaxConns,
	})

	handler := api.NewHandler(clients)
	router := api.NewRouter(&cfg.Server, handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Str("addr", addr).
			Str("upstream", cfg.Strapi.URL).
			Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logging.Info().Msg("server stopped")
	return nil
}
