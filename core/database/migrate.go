package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/arcanumbot/core/logger"
)

// RunMigrations applies all up migrations from cfg.MigrationsDir to db.
// It returns the schema version reached.
func RunMigrations(ctx context.Context, db *sqlx.DB, cfg Config) (uint, error) {
	if db == nil {
		return 0, errors.New("migrate: nil database")
	}
	if err := cfg.Normalize(); err != nil {
		return 0, err
	}

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return 0, fmt.Errorf("resolve migrations dir: %w", err)
	}
	files := listMigrationFiles(dir)
	attrs := []slog.Attr{
		slog.String("path", dir),
		slog.Int("files_total", len(files)),
	}
	if preview, truncated := logger.SummarizeStrings(files, 6); preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
		if truncated {
			attrs = append(attrs, slog.Bool("files_truncated", true))
		}
	}
	logger.Debug(ctx, "db.migrate", "migrate.resolve", attrs...)

	driver, err := databaseDriver(db, cfg.Driver)
	if err != nil {
		return 0, err
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(dir), cfg.Driver, driver)
	if err != nil {
		logger.Error(ctx, "db.migrate", "migrate.init", slog.String("err", err.Error()))
		return 0, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "migrate.apply",
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return fromVer, fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := selectApplied(files, uint64(fromVer), uint64(toVer))
	if len(applied) > 0 {
		preview, _ := logger.SummarizeStrings(applied, 6)
		logger.Debug(ctx, "db.migrate", "migrate.apply",
			slog.Int("files_total", len(applied)),
			slog.String("files_preview", preview),
		)
	}
	logger.Info(ctx, "db.migrate", "migrate.summary",
		slog.String("driver", cfg.Driver),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return toVer, nil
}

func databaseDriver(db *sqlx.DB, name string) (database.Driver, error) {
	switch name {
	case DriverPostgres:
		drv, err := postgres.WithInstance(db.DB, &postgres.Config{})
		if err != nil {
			return nil, fmt.Errorf("postgres migrate driver: %w", err)
		}
		return drv, nil
	case DriverSQLite:
		drv, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
		if err != nil {
			return nil, fmt.Errorf("sqlite migrate driver: %w", err)
		}
		return drv, nil
	}
	return nil, fmt.Errorf("migrate: unsupported driver %q", name)
}

func listMigrationFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
