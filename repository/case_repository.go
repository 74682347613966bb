package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"casedb-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CaseRepository handles database operations for extracted cases
type CaseRepository struct {
	db *pgxpool.Pool
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{db: db}
}

// Load retrieves every case ordered by decision date, undated last
func (r *CaseRepository) Load(ctx context.Context) (*models.Dataset, error) {
	query := `
		SELECT link, case_name, court, tribunal, decision_date,
			offence_titles, statute_refs, citations,
			mitigation_discussed, aggravation_discussed
		FROM cases
		ORDER BY decision_date ASC NULLS LAST, link ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	dataset := &models.Dataset{Records: []models.CaseRecord{}}
	for rows.Next() {
		var (
			rec      models.CaseRecord
			date     *time.Time
			refsJSON []byte
		)
		err := rows.Scan(
			&rec.Link,
			&rec.CaseName,
			&rec.Court,
			&rec.Tribunal,
			&date,
			&rec.OffenceTitles,
			&refsJSON,
			&rec.Citations,
			&rec.MitigationDiscussed,
			&rec.AggravationDiscussed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		if date != nil {
			rec.DecisionDate = *date
		}
		if err := decodeRefs(refsJSON, &rec); err != nil {
			return nil, fmt.Errorf("case %s: %w", rec.Link, err)
		}
		dataset.Records = append(dataset.Records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cases: %w", err)
	}

	return dataset, nil
}

// Save inserts the run's new records in one transaction. The table already
// holds the full dataset, and existing links are left untouched.
func (r *CaseRepository) Save(ctx context.Context, full *models.Dataset, fresh []models.CaseRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO cases (
			link, case_name, court, tribunal, decision_date,
			offence_titles, statute_refs, citations,
			mitigation_discussed, aggravation_discussed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (link) DO NOTHING`

	batch := &pgx.Batch{}
	for _, rec := range fresh {
		refsJSON, err := json.Marshal(rec.StatuteRefs)
		if err != nil {
			return fmt.Errorf("failed to marshal statute refs: %w", err)
		}
		batch.Queue(query,
			rec.Link,
			rec.CaseName,
			rec.Court,
			rec.Tribunal,
			nullDate(rec.DecisionDate),
			nonNilStrings(rec.OffenceTitles),
			string(refsJSON),
			nonNilStrings(rec.Citations),
			rec.MitigationDiscussed,
			rec.AggravationDiscussed,
		)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert cases: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByLink retrieves one case
func (r *CaseRepository) GetByLink(ctx context.Context, link string) (*models.CaseRecord, error) {
	query := `
		SELECT link, case_name, court, tribunal, decision_date,
			offence_titles, statute_refs, citations,
			mitigation_discussed, aggravation_discussed
		FROM cases
		WHERE link = $1`

	var (
		rec      models.CaseRecord
		date     *time.Time
		refsJSON []byte
	)
	err := r.db.QueryRow(ctx, query, link).Scan(
		&rec.Link,
		&rec.CaseName,
		&rec.Court,
		&rec.Tribunal,
		&date,
		&rec.OffenceTitles,
		&refsJSON,
		&rec.Citations,
		&rec.MitigationDiscussed,
		&rec.AggravationDiscussed,
	)
	if err != nil {
		return nil, err
	}
	if date != nil {
		rec.DecisionDate = *date
	}
	if err := decodeRefs(refsJSON, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func decodeRefs(raw []byte, rec *models.CaseRecord) error {
	rec.StatuteRefs = []models.StatuteRef{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &rec.StatuteRefs); err != nil {
		return fmt.Errorf("failed to decode statute refs: %w", err)
	}
	if rec.StatuteRefs == nil {
		rec.StatuteRefs = []models.StatuteRef{}
	}
	return nil
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
