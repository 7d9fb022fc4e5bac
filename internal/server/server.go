// Package server implements the request-serving branch of the entrypoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"docshelf/internal/cfg"
	"docshelf/internal/store"
	"docshelf/internal/taskmon"
)

// The server always binds all interfaces on this port; deployments remap it
// at the container boundary.
const addr = ":8000"

const (
	writeTimeout    = 30 * time.Second
	readTimeout     = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a listener
// failure. It is the terminal action of the "server" command.
func Run(ctx context.Context, config cfg.Config) error {
	st, err := store.Connect(ctx, config.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	tasks, err := taskmon.NewRedisStore(config.RedisURL, config.TaskStatusTTL)
	if err != nil {
		return err
	}
	defer func() {
		if err := tasks.Close(); err != nil {
			zap.L().Warn("close task store", zap.Error(err))
		}
	}()

	srv := http.Server{
		Addr:         addr,
		Handler:      newMux(st, tasks),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	// Sized for both senders: the listener and the shutdown path may each
	// send once, and only the first result is read.
	stopCh := make(chan error, 2)

	go func() {
		zap.L().Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stopCh <- err
		}
	}()

	go func() {
		<-signalCh
		zap.L().Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopCh <- srv.Shutdown(sctx)
	}()

	err = <-stopCh
	zap.L().Info("http server stopped")
	return err
}
