// Package store persists audit reports in a SQLite database so successive
// runs over the same export can be compared.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/dshills/policyaudit/internal/schema"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	tool TEXT NOT NULL,
	version TEXT NOT NULL,
	directory TEXT NOT NULL,
	profile TEXT NOT NULL,
	as_of TEXT NOT NULL,
	verdict TEXT NOT NULL,
	total INTEGER NOT NULL,
	critical_count INTEGER NOT NULL,
	warn_count INTEGER NOT NULL,
	info_count INTEGER NOT NULL,
	contracts_affected INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS run_files (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	table_name TEXT NOT NULL,
	path TEXT NOT NULL,
	hash TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	repaired_lines INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS checks (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT,
	anomaly_count INTEGER NOT NULL,
	distinct_contracts INTEGER NOT NULL,
	amount_column TEXT,
	amount TEXT
);
CREATE TABLE IF NOT EXISTS anomalies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	table_name TEXT NOT NULL,
	column_name TEXT,
	row_id TEXT,
	contract_ref TEXT,
	group_key TEXT,
	category TEXT NOT NULL,
	severity TEXT NOT NULL,
	original_value TEXT,
	observed TEXT,
	expected TEXT,
	delta TEXT,
	amount TEXT,
	details TEXT
);
CREATE INDEX IF NOT EXISTS idx_anomalies_run ON anomalies(run_id);
CREATE INDEX IF NOT EXISTS idx_anomalies_contract ON anomalies(contract_ref);
`

// Store is a SQLite-backed report archive.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport writes a report and all its anomalies in one transaction.
func (s *Store) SaveReport(ctx context.Context, r *schema.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sum := r.Summary
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, tool, version, directory, profile, as_of, verdict, total,
			critical_count, warn_count, info_count, contracts_affected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Tool, r.Version, r.Input.Directory, r.Input.Profile, r.Input.AsOf, string(sum.Verdict),
		sum.Total, sum.CriticalCount, sum.WarnCount, sum.InfoCount, sum.ContractsAffected,
	); err != nil {
		return fmt.Errorf("saving run %s: %w", r.RunID, err)
	}

	for _, f := range r.Input.Files {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_files (run_id, table_name, path, hash, row_count, repaired_lines) VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, f.Table, f.Path, f.Hash, f.Rows, f.RepairedLines,
		); err != nil {
			return fmt.Errorf("saving file %s: %w", f.Path, err)
		}
	}

	for _, c := range r.Checks {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO checks (run_id, name, status, reason, anomaly_count, distinct_contracts, amount_column, amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, c.Name, string(c.Status), c.Reason, c.Count, c.DistinctContracts, c.AmountColumn, nullable(c.Amount),
		); err != nil {
			return fmt.Errorf("saving check %s: %w", c.Name, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO anomalies (run_id, table_name, column_name, row_id, contract_ref, group_key, category,
			severity, original_value, observed, expected, delta, amount, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing anomaly insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range r.Anomalies {
		var details []byte
		if len(a.Details) > 0 {
			if details, err = json.Marshal(a.Details); err != nil {
				return fmt.Errorf("encoding details of %s: %w", a.RowID, err)
			}
		}
		if _, err = stmt.ExecContext(ctx,
			r.RunID, a.Table, a.Column, a.RowID, a.ContractRef, a.Group, string(a.Category), string(a.Severity),
			a.OriginalValue, nullable(a.Observed), nullable(a.Expected), nullable(a.Delta), nullable(a.Amount), string(details),
		); err != nil {
			return fmt.Errorf("saving anomaly %s %s: %w", a.Category, a.RowID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", r.RunID, err)
	}
	return nil
}

func nullable(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// Run is one stored run.
type Run struct {
	RunID     string
	Verdict   schema.Verdict
	Total     int
	Anomalies int
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.verdict, r.total, COUNT(a.id)
		FROM runs r LEFT JOIN anomalies a ON a.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.created_at DESC, r.run_id`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var verdict string
		if err := rows.Scan(&r.RunID, &verdict, &r.Total, &r.Anomalies); err != nil {
			return nil, fmt.Errorf("reading run: %w", err)
		}
		r.Verdict = schema.Verdict(verdict)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByCategory returns the stored anomaly count per category of a run.
func (s *Store) CountByCategory(ctx context.Context, runID string) (map[schema.Category]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM anomalies WHERE run_id = ? GROUP BY category`, runID)
	if err != nil {
		return nil, fmt.Errorf("counting anomalies of %s: %w", runID, err)
	}
	defer rows.Close()

	out := make(map[schema.Category]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("reading count: %w", err)
		}
		out[schema.Category(cat)] = n
	}
	return out, rows.Err()
}
