package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"docshelf/internal/cfg"
	"docshelf/internal/migrate"
	"docshelf/internal/server"
	"docshelf/internal/store"
	"docshelf/internal/worker"
)

type command func(ctx context.Context, config cfg.Config) error

func main() {
	flag.Parse()

	cmd, err := resolve(flag.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalln(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	config, err := cfg.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if err := cmd(context.Background(), config); err != nil {
		logger.Fatal("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}

// resolve maps the positional argument to a lifecycle action. Unknown or
// missing arguments are usage errors and must not touch any backing service.
func resolve(mode string) (command, error) {
	switch mode {
	case "init":
		return runInit, nil
	case "server":
		return server.Run, nil
	case "worker":
		return worker.Run, nil
	case "":
		return nil, errors.New("usage: docshelf <init|server|worker>")
	default:
		return nil, fmt.Errorf("unknown command %q (expected init, server or worker)", mode)
	}
}

// provisioner is the slice of the store the init branch needs; *store.Store
// satisfies it.
type provisioner interface {
	CreateSuperuser(ctx context.Context, username, email, password string) (store.User, error)
	Close()
}

func runInit(ctx context.Context, config cfg.Config) error {
	return initialize(ctx, config, migrate.Up, connectStore)
}

func connectStore(ctx context.Context, databaseURL string) (provisioner, error) {
	return store.Connect(ctx, databaseURL)
}

// initialize migrates the schema and then, when both ADMIN_USERNAME and
// ADMIN_EMAIL are present, provisions the superuser account. Provisioning
// failures are swallowed so that re-running init against an already
// provisioned database stays successful.
func initialize(
	ctx context.Context,
	config cfg.Config,
	migrateUp func(context.Context, string) error,
	connect func(context.Context, string) (provisioner, error),
) error {
	if err := migrateUp(ctx, config.DatabaseURL); err != nil {
		return err
	}

	if config.AdminUsername == "" || config.AdminEmail == "" {
		return nil
	}

	st, err := connect(ctx, config.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.CreateSuperuser(ctx, config.AdminUsername, config.AdminEmail, config.AdminPassword); err != nil {
		zap.L().Warn("superuser not created",
			zap.String("username", config.AdminUsername),
			zap.Error(err))
	}

	return nil
}
