// Package worker implements the background-processing branch of the
// entrypoint: an outbox relay that streams task events out of Postgres over
// logical replication, and a NATS consumer that executes them.
package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"docshelf/internal/cfg"
	"docshelf/internal/event"
	"docshelf/internal/store"
	"docshelf/internal/taskmon"
)

const queueGroup = "docshelf-workers"

// Run starts the relay and the task consumer and blocks until SIGINT/SIGTERM
// or a relay failure. It is the terminal action of the "worker" command.
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

	nc, err := nats.Connect(config.NatsURL)
	if err != nil {
		return err
	}
	defer nc.Close()

	cons := &consumer{docs: st, tasks: tasks}
	sub, err := nc.QueueSubscribe(event.SubjectPrefix+">", queueGroup, cons.handle)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	rel, err := newRelay(ctx, config.DatabaseURL, nc)
	if err != nil {
		return err
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	// Sized for both senders: the relay loop and the shutdown path each send
	// exactly once, and only the first result is read.
	stopCh := make(chan error, 2)

	go func() {
		stopCh <- rel.run(ctx)
	}()

	go func() {
		<-signalCh
		zap.L().Info("shutting down")
		stopCh <- rel.close(context.Background())
	}()

	err = <-stopCh
	zap.L().Info("worker stopped")
	return err
}
