package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ignite/customer-import/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCustomerRepo is an in-memory CustomerRepo test double.
type memCustomerRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Customer
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{rows: make(map[string]domain.Customer)}
}

func (r *memCustomerRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
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

func (r *memCustomerRepo) BulkInsert(ctx context.Context, customers []domain.Customer) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range customers {
		if _, exists := r.rows[c.CustomerID]; exists {
			continue // duplicate-key conflict ignored, as real SQL upsert would
		}
		r.rows[c.CustomerID] = c
		n++
	}
	return n, nil
}

func (r *memCustomerRepo) BulkUpdate(ctx context.Context, customers []domain.Customer) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range customers {
		r.rows[c.CustomerID] = c
	}
	return len(customers), nil
}

func (r *memCustomerRepo) RecentSince(ctx context.Context, since time.Time, limit int) ([]domain.Customer, error) {
	return nil, nil
}

func (r *memCustomerRepo) Get(ctx context.Context, customerID string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[customerID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memCustomerRepo) List(ctx context.Context, limit, offset int) ([]domain.Customer, int, error) {
	return nil, 0, nil
}

func (r *memCustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.CustomerID] = *c
	return nil
}

func (r *memCustomerRepo) Update(ctx context.Context, customerID string, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[customerID] = *c
	return nil
}

func (r *memCustomerRepo) Delete(ctx context.Context, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, customerID)
	return nil
}

func TestBatchWriter_Flush_EmptyBatchIsNoop(t *testing.T) {
	w := NewBatchWriter(newMemCustomerRepo())
	result, err := w.Flush(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{}, result)
}

func TestBatchWriter_Flush_InsertsNewRows(t *testing.T) {
	w := NewBatchWriter(newMemCustomerRepo())
	items := []BatchItem{
		{Customer: domain.Customer{CustomerID: "C001", FirstName: "Alice"}, Hash: "h1"},
		{Customer: domain.Customer{CustomerID: "C002", FirstName: "Bob"}, Hash: "h2"},
	}
	result, err := w.Flush(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Affected)
	assert.Equal(t, "h2", result.LastHash)
}

func TestBatchWriter_Flush_DuplicateCustomerIDInBatchLastWins(t *testing.T) {
	w := NewBatchWriter(newMemCustomerRepo())
	items := []BatchItem{
		{Customer: domain.Customer{CustomerID: "C001", FirstName: "Alice"}, Hash: "h1"},
		{Customer: domain.Customer{CustomerID: "C001", FirstName: "Alicia"}, Hash: "h2"},
	}
	result, err := w.Flush(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Affected)
	assert.Equal(t, "h2", result.LastHash)
}

func TestBatchWriter_Flush_ExistingRowBecomesUpdate(t *testing.T) {
	repo := newMemCustomerRepo()
	repo.rows["C001"] = domain.Customer{CustomerID: "C001", FirstName: "Old"}
	w := NewBatchWriter(repo)
	items := []BatchItem{
		{Customer: domain.Customer{CustomerID: "C001", FirstName: "New"}, Hash: "h1"},
	}
	result, err := w.Flush(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Affected)
	got, _ := repo.Get(context.Background(), "C001")
	require.NotNil(t, got)
	assert.Equal(t, "New", got.FirstName)
}
