package domain

import "time"

// JobStatus enumerates the lifecycle states of an ImportJob.
type JobStatus string

const (
	JobIdle      JobStatus = "IDLE"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// ImportJob is the durable control record for one import run. It is the
// only state that survives a process restart; resume is computed entirely
// from its fields (BytesRead, RowsProcessed, RowsInserted, LastRowHash).
type ImportJob struct {
	ID            string    `json:"id" db:"id"`
	FilePath      string    `json:"file_path" db:"file_path"`
	Status        JobStatus `json:"status" db:"status"`
	BytesRead     int64     `json:"bytes_read" db:"bytes_read"`
	RowsProcessed int64     `json:"rows_processed" db:"rows_processed"`
	RowsInserted  int64     `json:"rows_inserted" db:"rows_inserted"`

	// LastRowHash is the fingerprint of the most recently committed input
	// row, or empty before the first commit. It is the resume marker.
	LastRowHash string `json:"last_row_hash,omitempty" db:"last_row_hash"`

	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	Error       string     `json:"error,omitempty" db:"error"`
}

// IsTerminal returns true if the job has reached a final state.
func (j *ImportJob) IsTerminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// ResumeCursor is the subset of ImportJob fields needed to resume an
// interrupted run. It is carried from the Job Store into the Import
// Worker without re-deriving anything from the source file.
type ResumeCursor struct {
	StartBytes    int64
	LastRowHash   string
	RowsProcessed int64
	RowsInserted  int64
}
