// Package store provides a SQLite-backed cache for derived forecasts.
// Ledger rows are never written here.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/theirongolddev/spendburn/internal/forecast"

	_ "modernc.org/sqlite" // register sqlite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Cache provides SQLite-backed forecast caching.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "spendburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "spendburn")
}

// CachePath returns the default forecast cache database path.
func CachePath() string {
	return filepath.Join(CacheDir(), "forecasts.db")
}

// Open opens or creates the cache database at the given path and brings its
// schema up to date.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	return &Cache{db: db, now: time.Now}, nil
}

// runMigrations applies the embedded migrations on a separate connection;
// closing the migrator closes its database handle.
func runMigrations(dbPath string) error {
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer func() { _ = migrateDB.Close() }()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GetForecast returns the predictions stored under key.
func (c *Cache) GetForecast(key string) ([]forecast.Prediction, bool, error) {
	var expected int
	err := c.db.QueryRow("SELECT points FROM forecasts WHERE cache_key = ?", key).Scan(&expected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := c.db.Query(`SELECT ds, yhat, yhat_lower, yhat_upper
		FROM forecast_points WHERE cache_key = ? ORDER BY seq`, key)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = rows.Close() }()

	preds := make([]forecast.Prediction, 0, expected)
	for rows.Next() {
		var ds string
		var p forecast.Prediction
		if err := rows.Scan(&ds, &p.Yhat, &p.YhatLower, &p.YhatUpper); err != nil {
			return nil, false, err
		}
		p.Date, err = time.Parse(time.DateOnly, ds)
		if err != nil {
			return nil, false, fmt.Errorf("cached date %q: %w", ds, err)
		}
		preds = append(preds, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(preds) != expected {
		// Partially written entry; treat as a miss so it gets rewritten.
		return nil, false, nil
	}
	return preds, true, nil
}

// PutForecast stores predictions under key, replacing any previous entry.
func (c *Cache) PutForecast(key, modelName string, horizon int, preds []forecast.Prediction) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM forecast_points WHERE cache_key = ?", key); err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO forecasts (cache_key, model, horizon, points, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		key, modelName, horizon, len(preds), c.now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO forecast_points
		(cache_key, seq, ds, yhat, yhat_lower, yhat_upper) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i, p := range preds {
		if _, err := stmt.Exec(key, i, p.Date.Format(time.DateOnly), p.Yhat, p.YhatLower, p.YhatUpper); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Purge removes entries older than maxAge and returns how many were dropped.
func (c *Cache) Purge(maxAge time.Duration) (int64, error) {
	cutoff := c.now().Add(-maxAge).UTC().Format(time.RFC3339)

	tx, err := c.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM forecast_points WHERE cache_key IN
		(SELECT cache_key FROM forecasts WHERE created_at < ?)`, cutoff); err != nil {
		return 0, err
	}
	res, err := tx.Exec("DELETE FROM forecasts WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

// Count returns the number of cached forecasts.
func (c *Cache) Count() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM forecasts").Scan(&count)
	return count, err
}
