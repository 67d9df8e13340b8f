package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shrdaa/backend/internal/database"
	"github.com/shrdaa/backend/internal/handlers"
	"github.com/shrdaa/backend/internal/services"
	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return serveRun(cmd.Context(), a)
		},
	}
}

func serveRun(ctx context.Context, a *app) error {
	if a.cfg.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key must be set to serve the API")
	}

	ledger, closeStore, err := openLedger(ctx, a)
	if err != nil {
		return err
	}
	defer closeStore()

	redisClient := database.InitRedis(ctx, a.cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	authService := services.NewAuthService(ledger, redisClient, a.cfg.JWT.SecretKey, a.cfg.JWT.Expiry(), a.logger)
	receiptService := services.NewReceiptService(ledger)

	server := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      handlers.NewRouter(ledger, authService, receiptService, a.logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	a.logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("Server stopped")
	return nil
}
