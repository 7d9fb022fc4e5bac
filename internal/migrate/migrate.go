// Package migrate applies the embedded schema migrations. It runs
// non-interactively and is safe to re-run: goose tracks applied versions in
// the database and skips them.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Up brings the schema to the latest embedded version.
func Up(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			zap.L().Warn("close database", zap.Error(err))
		}
	}()

	fsys, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, res := range results {
		zap.L().Info("applied migration",
			zap.String("source", res.Source.Path),
			zap.Duration("took", res.Duration))
	}
	if len(results) == 0 {
		zap.L().Info("schema already up to date")
	}

	return nil
}
