package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Migration is one forward step of the schema. Backfill, when set, runs in
// the same transaction after Up.
type Migration struct {
	Version  string
	Up       string
	Backfill func(ctx context.Context, tx *sql.Tx) error
}

// AllMigrations are applied in order; a version already recorded in
// schema_version is skipped.
var AllMigrations = []Migration{
	{Version: "1.0.0", Up: migrationV1Up},
	{Version: "1.1.0", Up: migrationV1_1Up, Backfill: backfillProductNameKeys},
}

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS products (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    code            TEXT    NOT NULL UNIQUE,
    name            TEXT    NOT NULL,
    description     TEXT    NOT NULL DEFAULT '',
    -- Fixed-point decimal rendered as TEXT, never REAL.
    price           TEXT    NOT NULL,
    stock_quantity  INTEGER NOT NULL CHECK (stock_quantity >= 0),
    version         INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT    NOT NULL,
    updated_at      TEXT    NOT NULL
);

-- Superseded by idx_products_name_key in 1.1.0.
CREATE UNIQUE INDEX IF NOT EXISTS idx_products_name ON products(name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS orders (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    code            TEXT    NOT NULL UNIQUE,
    customer_name   TEXT    NOT NULL,
    customer_email  TEXT    NOT NULL,
    status          TEXT    NOT NULL CHECK (status IN ('PENDING', 'PROCESSING', 'COMPLETED', 'CANCELLED')),
    total_amount    TEXT    NOT NULL,
    order_date      TEXT    NOT NULL,
    version         INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT    NOT NULL,
    updated_at      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_order_date ON orders(order_date);

CREATE TABLE IF NOT EXISTS order_items (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    code            TEXT    NOT NULL UNIQUE,
    order_id        INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    -- Weak reference: deleting the product keeps the snapshot columns.
    product_id      INTEGER REFERENCES products(id) ON DELETE SET NULL,
    product_name    TEXT    NOT NULL,
    unit_price      TEXT    NOT NULL,
    quantity        INTEGER NOT NULL CHECK (quantity > 0),
    version         INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT    NOT NULL,
    updated_at      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id);
`

// NOCASE folds ASCII only, so name uniqueness moves to a Unicode case-folded
// key maintained by the repository.
const migrationV1_1Up = `
ALTER TABLE products ADD COLUMN name_key TEXT NOT NULL DEFAULT '';
DROP INDEX IF EXISTS idx_products_name;
`

func backfillProductNameKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM products`)
	if err != nil {
		return err
	}
	keys := map[int64]string{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			_ = rows.Close()
			return err
		}
		keys[id] = nameKey(name)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, key := range keys {
		if _, err := tx.ExecContext(ctx, `UPDATE products SET name_key = ? WHERE id = ?`, key, id); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_products_name_key ON products(name_key)`)
	return err
}

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version     TEXT PRIMARY KEY,
    applied_at  TEXT NOT NULL
);`

// ApplyMigrations brings db up to the newest schema version.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	current, err := CurrentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range AllMigrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("sqlite: invalid migration version %s: %w", m.Version, err)
		}
		if !current.LessThan(v) {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
		current = v
	}
	return nil
}

// CurrentSchemaVersion returns the highest applied version, 0.0.0 if none.
func CurrentSchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_version`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read schema_version: %w", err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("sqlite: scan schema_version: %w", err)
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("sqlite: invalid recorded schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin migration %s: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("sqlite: apply migration %s: %w", m.Version, err)
	}
	if m.Backfill != nil {
		if err := m.Backfill(ctx, tx); err != nil {
			return fmt.Errorf("sqlite: backfill migration %s: %w", m.Version, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		m.Version, formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("sqlite: record migration %s: %w", m.Version, err)
	}
	return tx.Commit()
}
