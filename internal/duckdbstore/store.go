// Package duckdbstore implements ports.StateStore on top of an embedded
// DuckDB database file, giving a crashed run something to resume from
// without standing up an external database.
package duckdbstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/ports"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

const (
	portfolioKey = "portfolio"
	riskKey      = "risk"
)

// Store persists portfolio, risk, and idempotency state to a DuckDB file
// under a run's data directory. State is stored as JSON blobs keyed by
// a fixed row key rather than column-per-field, since PortfolioState and
// RiskState evolve independently of any query the store itself needs to
// run over them.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// New opens (creating if necessary) a DuckDB database file at path and
// prepares the tables the store needs.
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to create state directory", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to open state database", err)
	}

	s := &Store{db: db, path: path}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS engine_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS idempotency_map (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to migrate state schema", err)
		}
	}

	return nil
}

var _ ports.StateStore = (*Store)(nil)

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to close state database", err)
	}

	s.db = nil

	return nil
}

func (s *Store) loadJSON(ctx context.Context, key string, dest any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string

	err := s.db.QueryRowContext(ctx, `SELECT value FROM engine_state WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, fmt.Sprintf("failed to load %s state", key), err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, fmt.Sprintf("failed to decode %s state", key), err)
	}

	return true, nil
}

func (s *Store) saveJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, fmt.Sprintf("failed to encode %s state", key), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO engine_state (key, value, updated_at)
		VALUES (?, ?, now())
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, string(raw))
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, fmt.Sprintf("failed to save %s state", key), err)
	}

	return nil
}

// LoadPortfolioState returns the last saved portfolio snapshot. The
// second return value is false when no snapshot has ever been saved.
func (s *Store) LoadPortfolioState(ctx context.Context) (types.PortfolioState, bool, error) {
	var state types.PortfolioState

	found, err := s.loadJSON(ctx, portfolioKey, &state)
	if err != nil {
		return types.PortfolioState{}, false, err
	}

	return state, found, nil
}

// SavePortfolioState upserts the current portfolio snapshot.
func (s *Store) SavePortfolioState(ctx context.Context, state types.PortfolioState) error {
	return s.saveJSON(ctx, portfolioKey, state)
}

// LoadRiskState returns the last saved risk monitor snapshot. The
// second return value is false when no snapshot has ever been saved.
func (s *Store) LoadRiskState(ctx context.Context) (types.RiskState, bool, error) {
	var state types.RiskState

	found, err := s.loadJSON(ctx, riskKey, &state)
	if err != nil {
		return types.RiskState{}, false, err
	}

	return state, found, nil
}

// SaveRiskState upserts the current risk monitor snapshot.
func (s *Store) SaveRiskState(ctx context.Context, state types.RiskState) error {
	return s.saveJSON(ctx, riskKey, state)
}

// LoadIdempotencyMap returns the full idempotency-key-to-order-id map.
// A run with no recorded submissions yet returns an empty, non-nil map.
func (s *Store) LoadIdempotencyMap(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM idempotency_map`)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to load idempotency map", err)
	}
	defer rows.Close()

	m := make(map[string]string)

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to scan idempotency row", err)
		}

		m[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to iterate idempotency map", err)
	}

	return m, nil
}

// SaveIdempotencyMap replaces the persisted idempotency map wholesale
// under one transaction, deleting every stored key before inserting
// the given map.
func (s *Store) SaveIdempotencyMap(ctx context.Context, m map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to begin idempotency map transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM idempotency_map`); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to clear idempotency map", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO idempotency_map (key, value) VALUES (?, ?)`)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to prepare idempotency map insert", err)
	}
	defer stmt.Close()

	for key, value := range m {
		if _, err := stmt.ExecContext(ctx, key, value); err != nil {
			return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to insert idempotency entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to commit idempotency map", err)
	}

	return nil
}

// ExportSnapshot writes the current engine_state and idempotency_map
// tables to parquet files under dir, giving a run's state directory a
// portable snapshot independent of the DuckDB file format's own
// versioning.
func (s *Store) ExportSnapshot(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to create snapshot directory", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exports := map[string]string{
		"engine_state":    filepath.Join(dir, "engine_state.parquet"),
		"idempotency_map": filepath.Join(dir, "idempotency_map.parquet"),
	}

	for table, out := range exports {
		query := fmt.Sprintf(`COPY (SELECT * FROM %s) TO '%s' (FORMAT PARQUET)`, table, out)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, fmt.Sprintf("failed to export %s to parquet", table), err)
		}
	}

	return nil
}

// ImportSnapshot loads engine_state and idempotency_map tables from
// parquet files previously written by ExportSnapshot, upserting rows
// rather than truncating so a partial snapshot cannot wipe out newer
// in-database state.
func (s *Store) ImportSnapshot(ctx context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statePath := filepath.Join(dir, "engine_state.parquet")
	if _, err := os.Stat(statePath); err == nil {
		query := fmt.Sprintf(`
			INSERT INTO engine_state
			SELECT * FROM read_parquet('%s')
			ON CONFLICT (key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, statePath)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to import engine_state snapshot", err)
		}
	}

	idempotencyPath := filepath.Join(dir, "idempotency_map.parquet")
	if _, err := os.Stat(idempotencyPath); err == nil {
		query := fmt.Sprintf(`
			INSERT INTO idempotency_map
			SELECT * FROM read_parquet('%s')
			ON CONFLICT (key) DO UPDATE SET value = excluded.value
		`, idempotencyPath)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to import idempotency_map snapshot", err)
		}
	}

	return nil
}
