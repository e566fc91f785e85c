package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// schema is applied on every open. Decimals are TEXT so quantities stay exact.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS parts (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		number            TEXT NOT NULL UNIQUE,
		description       TEXT NOT NULL DEFAULT '',
		uom               TEXT NOT NULL DEFAULT '',
		unit_price        TEXT NOT NULL DEFAULT '0',
		is_kit_component  INTEGER NOT NULL DEFAULT 0,
		parent_kit_number TEXT REFERENCES parts(number),
		created_at        DATETIME,
		updated_at        DATETIME,
		CHECK (is_kit_component = 0 OR parent_kit_number IS NOT NULL)
	)`,
	`CREATE TABLE IF NOT EXISTS sales_orders (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		number     TEXT NOT NULL UNIQUE,
		customer   TEXT NOT NULL DEFAULT '',
		status     INTEGER NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS wire_cutters (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at  DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS cut_jobs (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		wire_cutter_id INTEGER NOT NULL REFERENCES wire_cutters(id),
		status         INTEGER NOT NULL,
		version        INTEGER NOT NULL DEFAULT 0,
		fulfilled_at   DATETIME,
		created_at     DATETIME,
		updated_at     DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS cut_job_items (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		cut_job_id         INTEGER NOT NULL REFERENCES cut_jobs(id) ON DELETE CASCADE,
		part_number        TEXT NOT NULL REFERENCES parts(number),
		quantity_to_cut    TEXT NOT NULL DEFAULT '0',
		quantity_cut       TEXT NOT NULL DEFAULT '0',
		time_spent_minutes TEXT NOT NULL DEFAULT '0',
		status             INTEGER NOT NULL,
		started_at         DATETIME,
		fulfilled_at       DATETIME,
		created_at         DATETIME,
		updated_at         DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS sales_order_items (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		sales_order_id      INTEGER NOT NULL REFERENCES sales_orders(id) ON DELETE CASCADE,
		line_number         INTEGER NOT NULL,
		part_number         TEXT NOT NULL REFERENCES parts(number),
		description         TEXT NOT NULL DEFAULT '',
		uom                 TEXT NOT NULL DEFAULT '',
		due_date            DATETIME,
		quantity_to_fulfill TEXT NOT NULL DEFAULT '0',
		quantity_picked     TEXT NOT NULL DEFAULT '0',
		quantity_fulfilled  TEXT NOT NULL DEFAULT '0',
		is_cut              INTEGER NOT NULL DEFAULT 0,
		cut_at              DATETIME,
		pushback            INTEGER NOT NULL DEFAULT 0,
		parent_item_id      INTEGER REFERENCES sales_order_items(id) ON DELETE SET NULL,
		cut_job_item_id     INTEGER REFERENCES cut_job_items(id) ON DELETE SET NULL,
		quantity_assigned   TEXT NOT NULL DEFAULT '0',
		created_at          DATETIME,
		updated_at          DATETIME,
		UNIQUE (sales_order_id, line_number, part_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_order_items_part ON sales_order_items(part_number)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_order_items_cut_job_item ON sales_order_items(cut_job_item_id)`,
	`CREATE TABLE IF NOT EXISTS part_cut_histories (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		part_number        TEXT NOT NULL REFERENCES parts(number),
		wire_cutter_id     INTEGER NOT NULL REFERENCES wire_cutters(id),
		cut_job_item_id    INTEGER NOT NULL UNIQUE,
		quantity_cut       TEXT NOT NULL,
		total_time_minutes TEXT NOT NULL,
		event_date         DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_part_cut_histories_part_cutter ON part_cut_histories(part_number, wire_cutter_id)`,
	`CREATE TABLE IF NOT EXISTS system_properties (
		key        TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS leases (
		name       TEXT PRIMARY KEY,
		owner      TEXT NOT NULL,
		expires_at DATETIME NOT NULL
	)`,
}

// Migrate applies the schema. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, stmt := range schema {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}
