package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"casedb-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunRepository handles database operations for processing runs
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository creates a new processing run repository
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

// Create creates a new processing run
func (r *RunRepository) Create(ctx context.Context, run *models.ProcessingRun) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}

	query := `
		INSERT INTO processing_runs (
			court, status, steps, counts, error_message
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		run.Court,
		run.Status,
		run.Steps,
		string(counts),
		run.ErrorMessage,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
}

// GetByID retrieves a processing run by ID
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessingRun, error) {
	query := `
		SELECT id, court, status, steps, counts, error_message,
			created_at, updated_at, completed_at
		FROM processing_runs
		WHERE id = $1`

	return r.scanOne(ctx, query, id)
}

// GetLatest retrieves the most recent run for a court
func (r *RunRepository) GetLatest(ctx context.Context, court models.Court) (*models.ProcessingRun, error) {
	query := `
		SELECT id, court, status, steps, counts, error_message,
			created_at, updated_at, completed_at
		FROM processing_runs
		WHERE court = $1
		ORDER BY created_at DESC
		LIMIT 1`

	return r.scanOne(ctx, query, court)
}

func (r *RunRepository) scanOne(ctx context.Context, query string, arg any) (*models.ProcessingRun, error) {
	run := &models.ProcessingRun{}
	var counts []byte
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&run.ID,
		&run.Court,
		&run.Status,
		&run.Steps,
		&counts,
		&run.ErrorMessage,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(counts) > 0 {
		if err := json.Unmarshal(counts, &run.Counts); err != nil {
			return nil, fmt.Errorf("failed to decode counts: %w", err)
		}
	}
	// Ensure Steps is never nil
	if run.Steps == nil {
		run.Steps = make(models.RunSteps, 0)
	}

	return run, nil
}

// UpdateProgress updates the steps and counters of a run
func (r *RunRepository) UpdateProgress(ctx context.Context, run *models.ProcessingRun) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}

	query := `
		UPDATE processing_runs SET
			status = $2,
			steps = $3,
			counts = $4,
			updated_at = NOW()
		WHERE id = $1`

	_, err = r.db.Exec(ctx, query, run.ID, run.Status, run.Steps, string(counts))
	return err
}

// Complete marks a run as completed
func (r *RunRepository) Complete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE processing_runs SET
			status = $2,
			completed_at = $3,
			updated_at = $3
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.RunStatusCompleted, now)
	return err
}

// Fail marks a run as failed
func (r *RunRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE processing_runs SET
			status = $2,
			error_message = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.RunStatusFailed, errorMessage)
	return err
}
