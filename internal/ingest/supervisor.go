package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ignite/customer-import/internal/domain"
)

// SupervisorState is one of the four states in the supervisor's
// lifecycle state machine.
type SupervisorState string

const (
	StateIdle     SupervisorState = "IDLE"
	StateSpawning SupervisorState = "SPAWNING"
	StateRunning  SupervisorState = "RUNNING"
	StateDraining SupervisorState = "DRAINING"
)

// Settings are the process-wide import tunables the Supervisor applies
// to every run (CSV_PATH, IMPORT_RESUME_OVERLAP, IMPORT_HIGH_WATER_MARK).
// Zero values select the built-in defaults.
type Settings struct {
	DefaultCSVPath string
	ResumeOverlap  int64
	ReadBuffer     int
}

// Supervisor enforces exactly-one-active-worker in this process: it
// spawns, observes, and cleans up a single Worker, and performs boot-time
// auto-resume. Its only shared mutable state is the current worker handle
// and job id, guarded by a mutex.
type Supervisor struct {
	jobs      JobStore
	customers CustomerRepo
	broker    *Broker
	archive   Archiver
	lock      DistLock
	settings  Settings

	mu     sync.Mutex
	state  SupervisorState
	jobID  string
	cancel context.CancelFunc
}

// NewSupervisor wires the Supervisor's collaborators.
func NewSupervisor(jobs JobStore, customers CustomerRepo, broker *Broker, archive Archiver, lock DistLock, settings Settings) *Supervisor {
	if settings.ResumeOverlap <= 0 {
		settings.ResumeOverlap = DefaultResumeOverlapBytes
	}
	return &Supervisor{
		jobs:      jobs,
		customers: customers,
		broker:    broker,
		archive:   archive,
		lock:      lock,
		settings:  settings,
		state:     StateIdle,
	}
}

// State returns the supervisor's current state.
func (s *Supervisor) State() SupervisorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartRequest is the validated input to Start.
type StartRequest struct {
	FilePath string
	Params   RunParams
}

// Start runs the pre-checks and either resumes the existing
// RUNNING job in place or creates a fresh one, then spawns a Worker.
// Returns the job the caller should report back to the client.
func (s *Supervisor) Start(ctx context.Context, req StartRequest) (*domain.ImportJob, error) {
	path := req.FilePath
	if path == "" {
		path = s.settings.DefaultCSVPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	info, err := os.Stat(absPath)
	if err != nil || !info.Mode().IsRegular() {
		return nil, ErrFileNotFound
	}

	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateRunning || s.state == StateSpawning {
		s.mu.Unlock()
		return nil, ErrConflict
	}
	s.mu.Unlock()

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("ingest: acquire distributed lock: %w", err)
		}
		if !acquired {
			return nil, ErrConflict
		}
	}

	existing, err := s.jobs.FindLatestRunning(ctx)
	if err != nil {
		s.releaseLock(ctx)
		return nil, err
	}

	var job *domain.ImportJob
	var resume *ResumeData
	if existing != nil {
		job = existing
		resume = &ResumeData{
			StartBytes:    existing.BytesRead,
			OverlapBytes:  s.settings.ResumeOverlap,
			LastRowHash:   existing.LastRowHash,
			RowsProcessed: existing.RowsProcessed,
			RowsInserted:  existing.RowsInserted,
		}
	} else {
		job, err = s.jobs.Create(ctx, absPath)
		if err != nil {
			s.releaseLock(ctx)
			return nil, err
		}
	}

	s.spawn(job, absPath, req.Params, resume)
	return job, nil
}

// Resume performs boot-time reconciliation: if a
// RUNNING job is found with no live worker in this process, it is resumed
// immediately with the persisted cursor and a default overlap.
func (s *Supervisor) Resume(ctx context.Context) error {
	job, err := s.jobs.FindLatestRunning(ctx)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}
	resume := &ResumeData{
		StartBytes:    job.BytesRead,
		OverlapBytes:  s.settings.ResumeOverlap,
		LastRowHash:   job.LastRowHash,
		RowsProcessed: job.RowsProcessed,
		RowsInserted:  job.RowsInserted,
	}
	s.spawn(job, job.FilePath, RunParams{
		BatchSize:       DefaultBatchSize,
		ProgressEveryMs: DefaultProgressEveryMs,
		TotalRows:       DefaultTotalRows,
	}, resume)
	return nil
}

func (s *Supervisor) spawn(job *domain.ImportJob, path string, params RunParams, resume *ResumeData) {
	s.mu.Lock()
	s.state = StateSpawning
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.jobID = job.ID
	s.mu.Unlock()

	mapper := NewMapper()
	writer := NewBatchWriter(s.customers)
	worker := NewWorker(job.ID, path, params, resume, s.settings.ReadBuffer, mapper, writer, s.jobs, s.broker, s.archive)

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	go func() {
		worker.Run(ctx)
		s.drain()
	}()
}

// drain transitions RUNNING → DRAINING → IDLE once the worker handle is
// released, and releases the distributed lock if one is held.
func (s *Supervisor) drain() {
	s.mu.Lock()
	s.state = StateDraining
	s.cancel = nil
	s.jobID = ""
	s.mu.Unlock()

	s.releaseLock(context.Background())

	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
}

func (s *Supervisor) releaseLock(ctx context.Context) {
	if s.lock == nil {
		return
	}
	_ = s.lock.Release(ctx)
}

// Shutdown terminates the live worker (hard stop) and, if a RUNNING job
// still exists for it, marks it FAILED with "application shutdown".
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	cancel := s.cancel
	jobID := s.jobID
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if jobID != "" {
		_ = s.jobs.MarkFailed(ctx, jobID, "application shutdown")
	}
}
