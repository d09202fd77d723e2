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

	"github.com/spf13/cobra"

	"autogen-chat/web"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API and browser UI",
	Long:  "Loads configuration from the environment (and .env), then serves POST /chat, /health and the chat page.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, logger, h, err := loadBackend(ctx)
		if err != nil {
			return err
		}
		log := logger.With("component", "cmd.serve")

		ui, err := web.Handler(cfg.APIBase)
		if err != nil {
			return err
		}

		// Turns run several upstream calls back to back, so writes get no deadline.
		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           h.Routes(ui, cfg.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      0,
			IdleTimeout:       120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("Server listening", "addr", srv.Addr, "chat_model", cfg.OpenAI.ChatModel, "bucket", cfg.Media.Bucket)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}
		stop()

		log.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		log.Info("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
