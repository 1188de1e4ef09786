package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the catalog and order tables
const Schema = `
CREATE TABLE IF NOT EXISTS components (
	id              BIGINT PRIMARY KEY,
	code            TEXT NOT NULL UNIQUE,
	name            TEXT NOT NULL DEFAULT '',
	unit_of_measure TEXT NOT NULL DEFAULT '',
	stock_quantity  NUMERIC NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
	lead_time_days  INTEGER NOT NULL DEFAULT 0 CHECK (lead_time_days >= 0),
	kind            TEXT NOT NULL DEFAULT 'manufactured_component',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS technical_lists (
	id        BIGINT PRIMARY KEY,
	code      TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL DEFAULT '',
	category  SMALLINT NOT NULL CHECK (category BETWEEN 1 AND 5),
	parent_id BIGINT NULL REFERENCES technical_lists(id)
);

CREATE TABLE IF NOT EXISTS bom_lines (
	id                 BIGINT PRIMARY KEY,
	parent_list_id     BIGINT NOT NULL REFERENCES technical_lists(id),
	child_component_id BIGINT NULL,
	child_list_id      BIGINT NULL,
	quantity           NUMERIC NOT NULL,
	weighting          NUMERIC NULL,
	comment            TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS bom_lines_parent_idx ON bom_lines (parent_list_id, id);

CREATE TABLE IF NOT EXISTS production_orders (
	id             BIGINT PRIMARY KEY,
	target_list_id BIGINT NOT NULL,
	quantity       NUMERIC NOT NULL,
	due_date       DATE NOT NULL
);

-- quantities keep the scale they were written with
ALTER TABLE components ALTER COLUMN stock_quantity TYPE NUMERIC;
ALTER TABLE bom_lines ALTER COLUMN quantity TYPE NUMERIC;
ALTER TABLE bom_lines ALTER COLUMN weighting TYPE NUMERIC;
ALTER TABLE production_orders ALTER COLUMN quantity TYPE NUMERIC;
`

const dropSchema = `
DROP TABLE IF EXISTS production_orders;
DROP TABLE IF EXISTS bom_lines;
DROP TABLE IF EXISTS technical_lists;
DROP TABLE IF EXISTS components;
`

// Migrate creates any missing table
func (db *DB) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		return nil
	})
}

// Reset drops and recreates every table
func (db *DB) Reset(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, dropSchema); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		return nil
	})
}
