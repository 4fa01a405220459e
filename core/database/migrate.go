package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/estatebot/core/logger"
)

// RunMigrations applies every pending up migration.
func RunMigrations(cfg Config) error {
	dir, err := migrationsDir(cfg)
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+dir, cfg.URL())
	if err != nil {
		logger.MIG.Error("init failed", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "db.migrate"),
			slog.String("path", dir),
			slog.Duration("duration", took),
			slog.String("err", upErr.Error()),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}
	toVer, _, _ := m.Version()

	logger.MIG.Info("migrations summary",
		slog.String("event", "db.migrate"),
		slog.String("path", dir),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Duration("duration", took),
	)
	return nil
}

func migrationsDir(cfg Config) (string, error) {
	if cfg.MigrationsDir != "" {
		return filepath.Abs(cfg.MigrationsDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return filepath.Join(cwd, "migrations"), nil
}
