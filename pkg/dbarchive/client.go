// Package dbarchive is an optional Postgres-backed archive of finalized
// blocks, for the query surface's block-serving path (spec §1: "historical
// query... required for block serving"). It is grounded on the teacher's
// pkg/database client: connection pooling via database/sql plus lib/pq, an
// embedded migrations directory, and a small functional-options constructor.
// A node that never sets config.ArchiveDatabaseURL simply never constructs
// a Client and keeps running without one — nothing else in this module
// depends on archival to reach consensus.
package dbarchive

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/astria/sequencer/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Client is a pooled connection to the archive database.
type Client struct {
	db     *sql.DB
	logger *log.Logger
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient opens a pooled connection and verifies it with a ping.
func NewClient(cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil || cfg.ArchiveDatabaseURL == "" {
		return nil, fmt.Errorf("dbarchive: archive database url is not configured")
	}

	client := &Client{logger: log.New(log.Writer(), "[dbarchive] ", log.LstdFlags)}
	for _, opt := range opts {
		opt(client)
	}

	db, err := sql.Open("postgres", cfg.ArchiveDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("dbarchive: open: %w", err)
	}

	db.SetMaxOpenConns(cfg.ArchiveDatabaseMaxConns)
	db.SetMaxIdleConns(cfg.ArchiveDatabaseMinConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.ArchiveDatabaseMaxIdleSecs) * time.Second)
	db.SetConnMaxLifetime(time.Duration(cfg.ArchiveDatabaseMaxLifeSecs) * time.Second)
	client.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbarchive: ping: %w", err)
	}

	return client, nil
}

// Close releases the connection pool.
func (c *Client) Close() error { return c.db.Close() }

// MigrateUp applies every embedded migration not yet recorded in
// schema_migrations, in filename order.
func (c *Client) MigrateUp(ctx context.Context) error {
	migrations, err := c.readMigrations()
	if err != nil {
		return fmt.Errorf("dbarchive: read migrations: %w", err)
	}

	applied, err := c.appliedVersions(ctx)
	if err != nil {
		if !strings.Contains(err.Error(), "does not exist") {
			return fmt.Errorf("dbarchive: applied migrations: %w", err)
		}
		applied = make(map[string]bool)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := c.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("dbarchive: apply %s: %w", m.version, err)
		}
		c.logger.Printf("applied migration %s", m.version)
	}
	return nil
}

type migration struct {
	version string
	sql     string
}

func (c *Client) readMigrations() ([]migration, error) {
	var out []migration
	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		content, err := migrationsFS.ReadFile(path)
		if err != nil {
			return err
		}
		out = append(out, migration{version: strings.TrimSuffix(d.Name(), ".sql"), sql: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func (c *Client) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (c *Client) applyMigration(ctx context.Context, m migration) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	return tx.Commit()
}
