package ingest

import (
	"context"
	"time"

	"github.com/ignite/customer-import/internal/domain"
)

// JobStore is the durable-record contract for ImportJob. Implementations
// must refresh UpdatedAt on every write and must write BytesRead,
// RowsProcessed, RowsInserted, and LastRowHash together in one transaction
// so a resume always observes a consistent checkpoint.
type JobStore interface {
	// Create inserts a fresh RUNNING job row with zeroed counters.
	Create(ctx context.Context, filePath string) (*domain.ImportJob, error)

	// FindLatestRunning returns the single RUNNING job, or nil if none exists.
	FindLatestRunning(ctx context.Context) (*domain.ImportJob, error)

	// FindLatest returns the most-recently-updated job of any status, or nil.
	FindLatest(ctx context.Context) (*domain.ImportJob, error)

	// Get returns the job with the given id, or nil if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.ImportJob, error)

	// UpdateProgress writes a consistent checkpoint for a RUNNING job.
	UpdateProgress(ctx context.Context, id string, bytesRead, rowsProcessed, rowsInserted int64, lastRowHash string) error

	// MarkCompleted transitions the job to COMPLETED.
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed transitions the job to FAILED with the given reason. This
	// must be safe to call even if the job is already terminal (best-effort).
	MarkFailed(ctx context.Context, id, reason string) error
}

// CustomerRepo is the data-access contract for Customer rows: the batch
// writer's store plus the CRUD surface.
type CustomerRepo interface {
	// ExistingIDs returns the subset of the given customerIDs that already
	// have a row, used by the Batch Writer's existence probe.
	ExistingIDs(ctx context.Context, customerIDs []string) (map[string]bool, error)

	// BulkInsert inserts rows that don't yet exist, ignoring duplicate-key
	// conflicts (the resume-overlap safety net). Returns the count actually
	// inserted.
	BulkInsert(ctx context.Context, customers []domain.Customer) (int, error)

	// BulkUpdate updates existing rows by CustomerID inside one transaction:
	// fully applied or fully rolled back. Returns the count updated.
	BulkUpdate(ctx context.Context, customers []domain.Customer) (int, error)

	// RecentSince returns up to limit Customer rows most-recently updated
	// at or after since, newest first. Used by the Progress Broker snapshot.
	RecentSince(ctx context.Context, since time.Time, limit int) ([]domain.Customer, error)

	// Get returns a single customer by its source CustomerID.
	Get(ctx context.Context, customerID string) (*domain.Customer, error)

	// List returns a page of customers ordered by CustomerID.
	List(ctx context.Context, limit, offset int) ([]domain.Customer, int, error)

	// Create inserts a single customer row (CRUD surface).
	Create(ctx context.Context, c *domain.Customer) error

	// Update replaces a single customer row by CustomerID (CRUD surface).
	Update(ctx context.Context, customerID string, c *domain.Customer) error

	// Delete removes a single customer row by CustomerID (CRUD surface).
	Delete(ctx context.Context, customerID string) error
}

// Archiver is C8: best-effort archival of a completed source file. A no-op
// implementation is used when no archive backend is configured; its
// failure must never affect job status.
type Archiver interface {
	Archive(ctx context.Context, jobID, filePath string) error
}

// DistLock is the locking contract consumed by the Supervisor for C9. It
// mirrors internal/pkg/distlock.DistLock so the ingest package does not
// need to import that package directly in its interfaces, but the
// production wiring in cmd/server passes a *distlock value that satisfies
// it.
type DistLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}
