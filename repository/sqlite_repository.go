package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"casedb-backend/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cases (
	link                  TEXT PRIMARY KEY,
	case_name             TEXT NOT NULL,
	court                 TEXT NOT NULL,
	tribunal              TEXT NOT NULL DEFAULT '',
	decision_date         TEXT,
	offence_titles        TEXT NOT NULL DEFAULT '[]',
	statute_refs          TEXT NOT NULL DEFAULT '[]',
	citations             TEXT NOT NULL DEFAULT '[]',
	mitigation_discussed  INTEGER NOT NULL DEFAULT 0,
	aggravation_discussed INTEGER NOT NULL DEFAULT 0,
	created_at            TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_cases_decision_date ON cases(decision_date);
CREATE INDEX IF NOT EXISTS idx_cases_court ON cases(court);
`

// OpenSQLite opens a SQLite database with WAL journaling and a busy timeout,
// and creates the cases table. Use ":memory:" in tests.
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

// SQLiteCaseRepository stores cases in an embedded SQLite database
type SQLiteCaseRepository struct {
	db *sql.DB
}

// NewSQLiteCaseRepository creates a new SQLite case repository
func NewSQLiteCaseRepository(db *sql.DB) *SQLiteCaseRepository {
	return &SQLiteCaseRepository{db: db}
}

// Load retrieves every case ordered by decision date, undated last
func (r *SQLiteCaseRepository) Load(ctx context.Context) (*models.Dataset, error) {
	query := `
		SELECT link, case_name, court, tribunal, COALESCE(decision_date, ''),
			offence_titles, statute_refs, citations,
			mitigation_discussed, aggravation_discussed
		FROM cases
		ORDER BY decision_date IS NULL, decision_date ASC, link ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	dataset := &models.Dataset{Records: []models.CaseRecord{}}
	for rows.Next() {
		var (
			rec                     models.CaseRecord
			date                    string
			titles, refs, citations string
		)
		err := rows.Scan(
			&rec.Link,
			&rec.CaseName,
			&rec.Court,
			&rec.Tribunal,
			&date,
			&titles,
			&refs,
			&citations,
			&rec.MitigationDiscussed,
			&rec.AggravationDiscussed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		if date != "" {
			t, err := parseStoredDate(date)
			if err != nil {
				return nil, fmt.Errorf("case %s: %w", rec.Link, err)
			}
			rec.DecisionDate = t
		}
		if err := json.Unmarshal([]byte(titles), &rec.OffenceTitles); err != nil {
			return nil, fmt.Errorf("case %s: offence titles: %w", rec.Link, err)
		}
		if err := json.Unmarshal([]byte(citations), &rec.Citations); err != nil {
			return nil, fmt.Errorf("case %s: citations: %w", rec.Link, err)
		}
		if err := decodeRefs([]byte(refs), &rec); err != nil {
			return nil, fmt.Errorf("case %s: %w", rec.Link, err)
		}
		dataset.Records = append(dataset.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cases: %w", err)
	}
	return dataset, nil
}

// Save inserts the run's new records in one transaction, ignoring links that
// are already stored
func (r *SQLiteCaseRepository) Save(ctx context.Context, full *models.Dataset, fresh []models.CaseRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cases (
			link, case_name, court, tribunal, decision_date,
			offence_titles, statute_refs, citations,
			mitigation_discussed, aggravation_discussed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range fresh {
		titles, _ := json.Marshal(nonNilStrings(rec.OffenceTitles))
		citations, _ := json.Marshal(nonNilStrings(rec.Citations))
		refs, err := json.Marshal(rec.StatuteRefs)
		if err != nil {
			return fmt.Errorf("failed to marshal statute refs: %w", err)
		}
		var date any
		if !rec.DecisionDate.IsZero() {
			date = rec.DecisionDate.Format(models.DateLayout)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.Link, rec.CaseName, string(rec.Court), rec.Tribunal, date,
			string(titles), string(refs), string(citations),
			rec.MitigationDiscussed, rec.AggravationDiscussed,
		); err != nil {
			return fmt.Errorf("failed to insert case %s: %w", rec.Link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func parseStoredDate(s string) (t time.Time, err error) {
	t, err = time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad decision_date %q: %w", s, err)
	}
	return t, nil
}
