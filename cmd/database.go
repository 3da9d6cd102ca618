package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
)

// openDatabase connects to PostgreSQL, applies migrations and registers the repositories.
// Progress lines go to w.
func openDatabase(w io.Writer, cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Fprintln(w, "Connecting to PostgreSQL database...")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, nil
}

// connectDatabase opens the database for commands that only need the registered
// repositories; tests replace it to skip PostgreSQL.
var connectDatabase = func(w io.Writer, cfg *config.Config) (io.Closer, error) {
	pool, err := openDatabase(w, cfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}
