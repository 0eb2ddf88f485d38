package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/sheetsbot/core/logger"
)

const (
	readyTimeout = 30 * time.Second
	previewFiles = 6
)

// RunMigrations waits for the database and applies every pending up migration.
func RunMigrations(cfg Config) error {
	ctx := context.Background()
	dsn := cfg.URL()
	if err := WaitForPostgres(dsn, readyTimeout); err != nil {
		logger.Error(ctx, "db.migrate", "db.migrate", slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := resolveMigrationsDir(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	files := listMigrationFiles(dir)
	logger.Debug(ctx, "db.migrate", "resolve", fileAttrs(files, slog.String("path", dir))...)

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		logger.Error(ctx, "db.migrate", "init", slog.String("err", err.Error()))
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, "db.migrate", "close", slog.Any("err", errors.Join(srcErr, dbErr)))
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "apply",
			slog.String("status", logger.StatusFail),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("migration execution failed: %w", err)
	}
	to, _, _ := m.Version()

	applied := appliedBetween(files, uint64(from), uint64(to))
	if len(applied) > 0 {
		logger.Debug(ctx, "db.migrate", "apply", fileAttrs(applied)...)
	}
	logger.Info(ctx, "db.migrate", "summary",
		slog.String("status", logger.StatusOK),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func fileAttrs(files []string, extra ...slog.Attr) []slog.Attr {
	attrs := append(extra, slog.Int("files_total", len(files)))
	preview, truncated := logger.SummarizeStrings(files, previewFiles)
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

func resolveMigrationsDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "migrations"
	}
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	return filepath.Abs(dir)
}

// listMigrationFiles returns the sorted *.up.sql names in dir, or nil when it cannot be read.
func listMigrationFiles(dir string) []string {
	names, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return nil
	}
	for i, n := range names {
		names[i] = filepath.Base(n)
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween returns the files whose version lies in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
