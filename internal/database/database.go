package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-json/internal/logging"
	"media-json/internal/media"
	"media-json/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// schemaVersion is stored in the metadata table. A file written with a
// different version is cleared on open.
const schemaVersion = "1"

// Database is a SQLite-backed media.DimensionStore.
type Database struct {
	db     *sql.DB
	dbPath string
}

var _ media.DimensionStore = (*Database)(nil)

// New opens or creates the cache file at dbPath. The parent directory is
// created if needed.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Debug("Dimension cache: %s", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	// busy_timeout lets a build wait for a concurrent writer instead of failing
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Decoder workers read concurrently; SQLite serializes the writes.
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{db: db, dbPath: dbPath}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	if n, err := d.Count(ctx); err == nil {
		logging.Info("Dimension cache %s holds %d image(s)", dbPath, n)
	}
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dimensions (
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		format TEXT NOT NULL DEFAULT '',
		seen_at INTEGER NOT NULL,
		PRIMARY KEY (path, size, mod_time)
	);

	CREATE INDEX IF NOT EXISTS idx_dimensions_seen_at ON dimensions(seen_at);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return d.checkVersion(ctx)
}

// checkVersion clears the cache when it was written by an incompatible
// schema.
func (d *Database) checkVersion(ctx context.Context) error {
	version, err := d.getMetadata(ctx, "schema_version")
	if err != nil {
		return err
	}
	if version == schemaVersion {
		return nil
	}

	if version != "" {
		logging.Info("Dimension cache schema %s is outdated, clearing", version)
		if _, err := d.db.ExecContext(ctx, "DELETE FROM dimensions"); err != nil {
			return fmt.Errorf("failed to clear dimensions: %w", err)
		}
	}
	return d.setMetadata(ctx, "schema_version", schemaVersion)
}

func (d *Database) getMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (d *Database) setMetadata(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Path returns the location of the cache file.
func (d *Database) Path() string {
	return d.dbPath
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
