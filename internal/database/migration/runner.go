package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose"
	"go.uber.org/zap"
)

const lockKey int64 = 746295114

// Runner applies goose migrations from Dir. Replicas starting together
// serialize on a session advisory lock held by one pinned connection.
type Runner struct {
	Dir    string
	Logger *zap.Logger
}

func (r Runner) Run(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("migration: nil db")
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dir, err := resolveDir(r.Dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migration: dir %s: %w", dir, err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migration: dialect: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("migration: pin conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockKey); err != nil {
		return fmt.Errorf("migration: advisory lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockKey)
	}()

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migration: up: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("migration: version: %w", err)
	}
	logger.Info("migrations applied", zap.String("dir", dir), zap.Int64("version", version))
	return nil
}

func resolveDir(dir string) (string, error) {
	if strings.TrimSpace(dir) != "" {
		return dir, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), "migrations"), nil
}
