package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies every pending migration for the pool's dialect and
// returns how many ran.
func Migrate(ctx context.Context, db *DB) (int, error) {
	sub, err := fs.Sub(migrations, "migrations/"+db.Dialect.Name())
	if err != nil {
		return 0, err
	}
	provider, err := goose.NewProvider(db.Dialect.Goose(), db.DB, sub)
	if err != nil {
		return 0, fmt.Errorf("database: migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("database: migrate up: %w", err)
	}
	return len(results), nil
}
