package ingest

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/omarkamali/cohort/internal/config"
	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// SQLiteLoader reads respondent answers from a SQLite database. It looks for
// a table named after the survey id and falls back to the single user table
// when the database holds exactly one.
// Supported extensions: .sqlite .db .sqlite3.
type SQLiteLoader struct {
	cfg config.DataConfig
}

func NewSQLiteLoader(cfg config.DataConfig) *SQLiteLoader { return &SQLiteLoader{cfg: cfg} }

func (l *SQLiteLoader) Extensions() []string { return []string{".sqlite", ".db", ".sqlite3"} }

func (l *SQLiteLoader) Load(ctx context.Context, sv *survey.Survey, absPath string) ([]survey.Respondent, error) {
	util.FromContext(ctx).Info("Loading SQLite answers", "survey", sv.ID, "path", absPath)

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout=5000", absPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	table, err := l.pickTable(ctx, db, sv.ID)
	if err != nil {
		return nil, err
	}

	r, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %q", table))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	cols, err := r.Columns()
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	for r.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := r.Scan(ptrs...); err != nil {
			continue
		}
		m := map[string]string{}
		for i, c := range cols {
			if vals[i] == nil {
				continue
			}
			m[c] = fmt.Sprintf("%v", vals[i])
		}
		rows = append(rows, m)
	}

	return respondentsFromRows(ctx, sv, stringRows(rows), absPath), nil
}

func (l *SQLiteLoader) pickTable(ctx context.Context, db *sql.DB, surveyID string) (string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		tables = append(tables, name)
	}
	for _, t := range tables {
		if t == surveyID {
			return t, nil
		}
	}
	if len(tables) == 1 {
		return tables[0], nil
	}
	return "", fmt.Errorf("no table named %q and %d candidate tables", surveyID, len(tables))
}
