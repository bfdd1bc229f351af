package api

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/customer-import/internal/domain"
	"github.com/ignite/customer-import/internal/ingest"
)

// Handler tests surface repository misses through the same sentinels the
// production repositories return.
var (
	errNotFoundForTest  = ingest.ErrCustomerNotFound
	errDuplicateForTest = ingest.ErrDuplicateCustomer
)

// fakeJobStore is an in-memory ingest.JobStore for handler tests.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.ImportJob
	seq  int
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*domain.ImportJob)}
}

func (s *fakeJobStore) Create(ctx context.Context, filePath string) (*domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	job := &domain.ImportJob{
		ID:        "job-" + string(rune('0'+s.seq)),
		FilePath:  filePath,
		Status:    domain.JobRunning,
		StartedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.jobs[job.ID] = job
	return job, nil
}

func (s *fakeJobStore) FindLatestRunning(ctx context.Context) (*domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.Status == domain.JobRunning {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeJobStore) FindLatest(ctx context.Context) (*domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.ImportJob
	for _, j := range s.jobs {
		if latest == nil || j.UpdatedAt.After(latest.UpdatedAt) {
			latest = j
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeJobStore) Get(ctx context.Context, id string) (*domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeJobStore) UpdateProgress(ctx context.Context, id string, bytesRead, rowsProcessed, rowsInserted int64, lastRowHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.jobs[id]
	j.BytesRead = bytesRead
	j.RowsProcessed = rowsProcessed
	j.RowsInserted = rowsInserted
	j.LastRowHash = lastRowHash
	j.UpdatedAt = time.Now()
	return nil
}

func (s *fakeJobStore) MarkCompleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.jobs[id]
	j.Status = domain.JobCompleted
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

func (s *fakeJobStore) MarkFailed(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = domain.JobFailed
		j.Error = reason
		j.UpdatedAt = time.Now()
	}
	return nil
}

// fakeCustomerRepo is an in-memory ingest.CustomerRepo. Set block to make
// bulk writes stall until release is closed, to hold an import in the
// RUNNING state deterministically.
type fakeCustomerRepo struct {
	mu      sync.Mutex
	rows    map[string]domain.Customer
	block   bool
	release chan struct{}
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{rows: make(map[string]domain.Customer), release: make(chan struct{})}
}

func (r *fakeCustomerRepo) maybeBlock(ctx context.Context) {
	if !r.block {
		return
	}
	select {
	case <-r.release:
	case <-ctx.Done():
	}
}

func (r *fakeCustomerRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range ids {
		if _, ok := r.rows[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (r *fakeCustomerRepo) BulkInsert(ctx context.Context, customers []domain.Customer) (int, error) {
	r.maybeBlock(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range customers {
		if _, ok := r.rows[c.CustomerID]; !ok {
			c.UpdatedAt = time.Now()
			r.rows[c.CustomerID] = c
			n++
		}
	}
	return n, nil
}

func (r *fakeCustomerRepo) BulkUpdate(ctx context.Context, customers []domain.Customer) (int, error) {
	r.maybeBlock(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range customers {
		if _, ok := r.rows[c.CustomerID]; ok {
			c.UpdatedAt = time.Now()
			r.rows[c.CustomerID] = c
			n++
		}
	}
	return n, nil
}

func (r *fakeCustomerRepo) RecentSince(ctx context.Context, since time.Time, limit int) ([]domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Customer
	for _, c := range r.rows {
		if !c.UpdatedAt.Before(since) && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCustomerRepo) Get(ctx context.Context, id string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.rows[id]; ok {
		return &c, nil
	}
	return nil, errNotFoundForTest
}

func (r *fakeCustomerRepo) List(ctx context.Context, limit, offset int) ([]domain.Customer, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Customer
	for _, c := range r.rows {
		out = append(out, c)
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeCustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[c.CustomerID]; ok {
		return errDuplicateForTest
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.rows[c.CustomerID] = *c
	return nil
}

func (r *fakeCustomerRepo) Update(ctx context.Context, id string, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return errNotFoundForTest
	}
	c.UpdatedAt = time.Now()
	r.rows[id] = *c
	return nil
}

func (r *fakeCustomerRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return errNotFoundForTest
	}
	delete(r.rows, id)
	return nil
}
