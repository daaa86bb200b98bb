// Package store persists assembled datasets to SQLite. The assembled table
// is a checkpoint: model-training experiments re-read it from here instead
// of re-running the join/enrichment stage. Each run is a separate dataset
// row with its own schema metadata, so feature-set drift between runs is
// visible by comparing fingerprints.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zonwacht/pvyield/internal/assemble"
	"github.com/zonwacht/pvyield/internal/domain"
)

// Store wraps the SQLite checkpoint database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the SQLite database at path and
// applies pending migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA foreign_keys=ON")

	s := New(db, logger)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// New wraps an existing database handle. Callers own migration.
func New(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SaveDataset persists a dataset and returns its run ID. The dataset's
// key-uniqueness invariant is re-enforced by the table's unique constraint.
func (s *Store) SaveDataset(ds *assemble.Dataset) (int64, error) {
	schemaJSON, err := json.Marshal(ds.Schema)
	if err != nil {
		return 0, fmt.Errorf("marshal schema: %w", err)
	}
	reportJSON, err := json.Marshal(ds.Report)
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO datasets (assembled_at, fingerprint, sample_step, schema_json, report_json, row_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ds.AssembledAt, ds.Schema.Fingerprint, ds.Schema.SampleStep, string(schemaJSON), string(reportJSON), len(ds.Rows))
	if err != nil {
		return 0, fmt.Errorf("insert dataset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("dataset id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO dataset_rows (dataset_id, installation_id, obs_date, yield_kwh, features_json)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range ds.Rows {
		featuresJSON, err := json.Marshal(row.Features)
		if err != nil {
			return 0, fmt.Errorf("marshal features: %w", err)
		}
		if _, err := stmt.Exec(id, row.InstallationID, domain.DateKey(row.Date), row.YieldKWh, string(featuresJSON)); err != nil {
			return 0, fmt.Errorf("insert row (%s, %s): %w", row.InstallationID, domain.DateKey(row.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("dataset persisted", "dataset_id", id, "rows", len(ds.Rows), "fingerprint", ds.Schema.Fingerprint)
	return id, nil
}

// LoadDataset reads a persisted dataset by run ID.
func (s *Store) LoadDataset(id int64) (*assemble.Dataset, error) {
	var (
		assembledAt time.Time
		schemaJSON  string
		reportJSON  string
	)
	err := s.db.QueryRow(`
		SELECT assembled_at, schema_json, report_json FROM datasets WHERE id = ?
	`, id).Scan(&assembledAt, &schemaJSON, &reportJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dataset %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset %d: %w", id, err)
	}

	ds := &assemble.Dataset{AssembledAt: assembledAt}
	if err := json.Unmarshal([]byte(schemaJSON), &ds.Schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	if err := json.Unmarshal([]byte(reportJSON), &ds.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT installation_id, obs_date, yield_kwh, features_json
		FROM dataset_rows WHERE dataset_id = ?
		ORDER BY installation_id, obs_date
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row          assemble.Row
			dateStr      string
			featuresJSON string
		)
		if err := rows.Scan(&row.InstallationID, &dateStr, &row.YieldKWh, &featuresJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.Date, err = time.ParseInLocation(domain.DateFormat, dateStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse row date %q: %w", dateStr, err)
		}
		if err := json.Unmarshal([]byte(featuresJSON), &row.Features); err != nil {
			return nil, fmt.Errorf("unmarshal features: %w", err)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, rows.Err()
}

// LatestDatasetID returns the most recently saved dataset's ID, or an
// error when no dataset has been persisted yet.
func (s *Store) LatestDatasetID() (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(id) FROM datasets").Scan(&id); err != nil {
		return 0, err
	}
	if !id.Valid {
		return 0, fmt.Errorf("no datasets persisted")
	}
	return id.Int64, nil
}
