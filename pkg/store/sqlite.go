// Package store keeps a history of PnL snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gregtusar/squeeth/pkg/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS pnl_snapshots (
    id                         TEXT PRIMARY KEY,
    account                    TEXT NOT NULL,
    osqth_price                TEXT NOT NULL,
    eth_price                  TEXT NOT NULL,
    current_position_value     TEXT NOT NULL,
    unrealized_cost            TEXT NOT NULL,
    unrealized_pnl             TEXT NOT NULL,
    unrealized_pnl_percent     TEXT NOT NULL,
    realized_gain              TEXT NOT NULL,
    realized_cost              TEXT NOT NULL,
    realized_pnl               TEXT NOT NULL,
    realized_pnl_percent       TEXT NOT NULL,
    created_at                 INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pnl_snapshots_account ON pnl_snapshots (account, created_at DESC);
`

// Decimals are stored as text; SQLite REAL would lose precision.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates the database file and its directory if needed.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap models.Snapshot) error {
	r := snap.Result
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pnl_snapshots (
			id, account, osqth_price, eth_price,
			current_position_value, unrealized_cost, unrealized_pnl, unrealized_pnl_percent,
			realized_gain, realized_cost, realized_pnl, realized_pnl_percent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID.String(), snap.Account, snap.Prices.OSQTH.String(), snap.Prices.ETH.String(),
		r.CurrentPositionValue.String(), r.UnrealizedCost.String(), r.UnrealizedPnL.String(), r.UnrealizedPnLInPercent.String(),
		r.RealizedGain.String(), r.RealizedCost.String(), r.RealizedPnL.String(), r.RealizedPnLInPercent.String(),
		snap.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// List returns up to limit snapshots for account, newest first.
func (s *SQLiteStore) List(ctx context.Context, account string, limit int) ([]models.Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account, osqth_price, eth_price,
			current_position_value, unrealized_cost, unrealized_pnl, unrealized_pnl_percent,
			realized_gain, realized_cost, realized_pnl, realized_pnl_percent, created_at
		FROM pnl_snapshots
		WHERE account = ?
		ORDER BY created_at DESC
		LIMIT ?`, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSnapshot(rows *sql.Rows) (models.Snapshot, error) {
	var (
		id, account string
		createdAt   int64
		text        [10]string
	)
	if err := rows.Scan(&id, &account, &text[0], &text[1], &text[2], &text[3], &text[4],
		&text[5], &text[6], &text[7], &text[8], &text[9], &createdAt); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	var vals [10]decimal.Decimal
	for i, t := range text {
		d, err := decimal.NewFromString(t)
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("snapshot %s: bad decimal %q: %w", id, t, err)
		}
		vals[i] = d
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("snapshot id %q: %w", id, err)
	}

	return models.Snapshot{
		ID:      uid,
		Account: account,
		Prices:  models.Prices{OSQTH: vals[0], ETH: vals[1]},
		Result: models.PnLResult{
			CurrentPositionValue:   vals[2],
			UnrealizedCost:         vals[3],
			UnrealizedPnL:          vals[4],
			UnrealizedPnLInPercent: vals[5],
			RealizedGain:           vals[6],
			RealizedCost:           vals[7],
			RealizedPnL:            vals[8],
			RealizedPnLInPercent:   vals[9],
		},
		CreatedAt: time.Unix(0, createdAt).UTC(),
	}, nil
}
