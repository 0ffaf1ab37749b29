package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Tally store (SQLite).
var Migrations = migrate.NewGroup("tally")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tally_billing_configs",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_billing_configs (
    id              TEXT PRIMARY KEY,
    agency_id       TEXT NOT NULL DEFAULT '',
    tier            TEXT NOT NULL DEFAULT '',
    billed_users    INTEGER NOT NULL DEFAULT 0,
    soft_user_limit INTEGER,
    currency        TEXT NOT NULL DEFAULT 'USD',
    plan_starts_at  TEXT NOT NULL DEFAULT (datetime('now')),
    notes           TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tally_billing_configs_agency ON tally_billing_configs (agency_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_billing_configs`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_adjustments",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_adjustments (
    id         TEXT PRIMARY KEY,
    agency_id  TEXT NOT NULL DEFAULT '',
    kind       TEXT NOT NULL DEFAULT '',
    mode       TEXT NOT NULL DEFAULT '',
    value      INTEGER NOT NULL DEFAULT 0,
    currency   TEXT NOT NULL DEFAULT '',
    label      TEXT NOT NULL DEFAULT '',
    starts_at  TEXT,
    ends_at    TEXT,
    active     INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tally_adjustments_agency ON tally_adjustments (agency_id);
CREATE INDEX IF NOT EXISTS idx_tally_adjustments_agency_kind ON tally_adjustments (agency_id, kind);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_adjustments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_charges",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_charges (
    id                    TEXT PRIMARY KEY,
    agency_id             TEXT NOT NULL DEFAULT '',
    kind                  TEXT NOT NULL DEFAULT '',
    period_start          TEXT,
    period_end            TEXT,
    label                 TEXT NOT NULL DEFAULT '',
    status                TEXT NOT NULL DEFAULT 'pending',
    base_amount_usd       INTEGER NOT NULL DEFAULT 0,
    adjustments_total_usd INTEGER NOT NULL DEFAULT 0,
    total_usd             INTEGER NOT NULL DEFAULT 0,
    paid_amount           INTEGER,
    paid_currency         TEXT NOT NULL DEFAULT '',
    fx_rate               INTEGER NOT NULL DEFAULT 0,
    paid_at               TEXT,
    paid_account_id       TEXT NOT NULL DEFAULT '',
    paid_method           TEXT NOT NULL DEFAULT '',
    paid_notes            TEXT NOT NULL DEFAULT '',
    created_at            TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at            TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tally_charges_agency ON tally_charges (agency_id);
CREATE INDEX IF NOT EXISTS idx_tally_charges_status ON tally_charges (status);
CREATE INDEX IF NOT EXISTS idx_tally_charges_effective ON tally_charges (COALESCE(period_start, created_at));
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_charges`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_accounts",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_accounts (
    id         TEXT PRIMARY KEY,
    agency_id  TEXT NOT NULL DEFAULT '',
    name       TEXT NOT NULL DEFAULT '',
    currency   TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tally_accounts_agency ON tally_accounts (agency_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_opening_balances",
			Version: "20260101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_opening_balances (
    id             TEXT PRIMARY KEY,
    agency_id      TEXT NOT NULL DEFAULT '',
    account_id     TEXT NOT NULL DEFAULT '',
    currency       TEXT NOT NULL DEFAULT '',
    amount         INTEGER NOT NULL DEFAULT 0,
    effective_date TEXT NOT NULL DEFAULT (datetime('now')),
    note           TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tally_opening_balances_account_currency ON tally_opening_balances (account_id, currency);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_opening_balances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_account_audits",
			Version: "20260101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_account_audits (
    id                TEXT PRIMARY KEY,
    agency_id         TEXT NOT NULL DEFAULT '',
    account_id        TEXT NOT NULL DEFAULT '',
    currency          TEXT NOT NULL DEFAULT '',
    year              INTEGER NOT NULL DEFAULT 0,
    month             INTEGER NOT NULL DEFAULT 0,
    expected          INTEGER NOT NULL DEFAULT 0,
    actual            INTEGER NOT NULL DEFAULT 0,
    difference        INTEGER NOT NULL DEFAULT 0,
    create_adjustment INTEGER NOT NULL DEFAULT 0,
    adjustment_id     TEXT NOT NULL DEFAULT '',
    note              TEXT NOT NULL DEFAULT '',
    created_by        TEXT NOT NULL DEFAULT '',
    created_at        TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at        TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tally_account_audits_account ON tally_account_audits (account_id);
CREATE INDEX IF NOT EXISTS idx_tally_account_audits_period ON tally_account_audits (account_id, year, month);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_account_audits`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_account_adjustments",
			Version: "20260101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_account_adjustments (
    id             TEXT PRIMARY KEY,
    agency_id      TEXT NOT NULL DEFAULT '',
    account_id     TEXT NOT NULL DEFAULT '',
    currency       TEXT NOT NULL DEFAULT '',
    amount         INTEGER NOT NULL DEFAULT 0,
    effective_date TEXT NOT NULL DEFAULT (datetime('now')),
    reason         TEXT NOT NULL DEFAULT '',
    note           TEXT NOT NULL DEFAULT '',
    source         TEXT NOT NULL DEFAULT 'manual',
    audit_id       TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tally_account_adjustments_account ON tally_account_adjustments (account_id);
CREATE INDEX IF NOT EXISTS idx_tally_account_adjustments_effective ON tally_account_adjustments (account_id, currency, effective_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_account_adjustments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_period_locks",
			Version: "20260101000008",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_period_locks (
    id         TEXT PRIMARY KEY,
    agency_id  TEXT NOT NULL DEFAULT '',
    year       INTEGER NOT NULL DEFAULT 0,
    month      INTEGER NOT NULL DEFAULT 0,
    locked_by  TEXT NOT NULL DEFAULT '',
    note       TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tally_period_locks_period ON tally_period_locks (agency_id, year, month);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_period_locks`)
				return err
			},
		},
	)
}
