package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/customer-import/internal/domain"
)

// JobStore implements ingest.JobStore against PostgreSQL.
type JobStore struct{ db *sql.DB }

// NewJobStore creates a Postgres-backed import job store.
func NewJobStore(db *sql.DB) *JobStore { return &JobStore{db: db} }

const jobColumns = `id, file_path, status, bytes_read, rows_processed, rows_inserted,
       last_row_hash, COALESCE(error_message,''), started_at, completed_at, updated_at`

func scanJob(row *sql.Row) (*domain.ImportJob, error) {
	j := &domain.ImportJob{}
	var completedAt sql.NullTime
	err := row.Scan(
		&j.ID, &j.FilePath, &j.Status, &j.BytesRead, &j.RowsProcessed, &j.RowsInserted,
		&j.LastRowHash, &j.Error, &j.StartedAt, &completedAt, &j.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan import job: %w", err)
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	return j, nil
}

func (s *JobStore) Create(ctx context.Context, filePath string) (*domain.ImportJob, error) {
	now := time.Now().UTC()
	job := &domain.ImportJob{
		ID:        uuid.New().String(),
		FilePath:  filePath,
		Status:    domain.JobRunning,
		StartedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_jobs (id, file_path, status, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, job.ID, job.FilePath, job.Status, now)
	if err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}
	return job, nil
}

func (s *JobStore) FindLatestRunning(ctx context.Context) (*domain.ImportJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM import_jobs
		WHERE status = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, domain.JobRunning)
	return scanJob(row)
}

func (s *JobStore) FindLatest(ctx context.Context) (*domain.ImportJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM import_jobs
		ORDER BY updated_at DESC
		LIMIT 1
	`)
	return scanJob(row)
}

func (s *JobStore) Get(ctx context.Context, id string) (*domain.ImportJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM import_jobs
		WHERE id = $1
	`, id)
	return scanJob(row)
}

// UpdateProgress writes the full checkpoint tuple in one statement so a
// resume always observes bytes, counters, and marker together.
func (s *JobStore) UpdateProgress(ctx context.Context, id string, bytesRead, rowsProcessed, rowsInserted int64, lastRowHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET bytes_read = $2, rows_processed = $3, rows_inserted = $4,
		    last_row_hash = $5, updated_at = NOW()
		WHERE id = $1
	`, id, bytesRead, rowsProcessed, rowsInserted, lastRowHash)
	if err != nil {
		return fmt.Errorf("update import job progress: %w", err)
	}
	return nil
}

func (s *JobStore) MarkCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, domain.JobCompleted)
	if err != nil {
		return fmt.Errorf("mark import job completed: %w", err)
	}
	return nil
}

func (s *JobStore) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = $2, error_message = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4
	`, id, domain.JobFailed, reason, domain.JobRunning)
	if err != nil {
		return fmt.Errorf("mark import job failed: %w", err)
	}
	return nil
}
