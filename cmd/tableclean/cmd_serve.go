package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/tableclean/internal/web"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	service, closeDB, err := newService(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeDB()

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	slog.Info("server stopped")
	return nil
}
