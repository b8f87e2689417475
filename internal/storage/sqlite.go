package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/omarkamali/cohort/internal/cluster"
)

// SQLiteResultStore persists result records in a single SQLite database.

type SQLiteResultStore struct {
	db *sql.DB
}

const createResultsTable = `
CREATE TABLE IF NOT EXISTS cluster_results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	survey_id   TEXT NOT NULL,
	algorithm   TEXT NOT NULL,
	k           INTEGER NOT NULL,
	silhouette  REAL NOT NULL,
	seed        INTEGER NOT NULL,
	groups_json TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cluster_results_survey ON cluster_results(survey_id);
`

// NewSQLiteResultStore opens (creating if needed) the result database at
// path and ensures the schema exists.
func NewSQLiteResultStore(path string) (*SQLiteResultStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create result store directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createResultsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize result store schema: %w", err)
	}
	return &SQLiteResultStore{db: db}, nil
}

// Save inserts a record and returns it with id and creation time filled.
func (s *SQLiteResultStore) Save(ctx context.Context, res cluster.Result) (Record, error) {
	groups, err := json.Marshal(res.Groups)
	if err != nil {
		return Record{}, err
	}
	now := time.Now().UTC()
	out, err := s.db.ExecContext(ctx,
		`INSERT INTO cluster_results (survey_id, algorithm, k, silhouette, seed, groups_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.SurveyID, res.Algorithm, res.K, res.Silhouette, res.Seed, string(groups), now)
	if err != nil {
		return Record{}, err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return Record{}, err
	}
	return Record{ID: id, Result: res, CreatedAt: now}, nil
}

// BySurvey returns a survey's records, newest first.
func (s *SQLiteResultStore) BySurvey(ctx context.Context, surveyID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, survey_id, algorithm, k, silhouette, seed, groups_json, created_at
		 FROM cluster_results WHERE survey_id = ? ORDER BY id DESC`, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var groupsJSON string
		if err := rows.Scan(&rec.ID, &rec.Result.SurveyID, &rec.Result.Algorithm, &rec.Result.K,
			&rec.Result.Silhouette, &rec.Result.Seed, &groupsJSON, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(groupsJSON), &rec.Result.Groups); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLiteResultStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cluster_results`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *SQLiteResultStore) Close() error { return s.db.Close() }
