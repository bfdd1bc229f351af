package ingest

import (
	"context"

	"github.com/ignite/customer-import/internal/domain"
)

// BatchItem pairs a mapped Customer with its resume fingerprint.
type BatchItem struct {
	Customer domain.Customer
	Hash     string
}

// FlushResult is the outcome of one Batch Writer flush.
type FlushResult struct {
	Affected int
	LastHash string
}

// BatchWriter deduplicates, classifies, and commits one batch of mapped
// records. It is stateless between flushes; all state lives in the
// CustomerRepo it wraps.
type BatchWriter struct {
	repo  CustomerRepo
	retry retryConfig
}

// NewBatchWriter returns a BatchWriter backed by repo, retrying transient
// storage errors per the default backoff policy.
func NewBatchWriter(repo CustomerRepo) *BatchWriter {
	return &BatchWriter{repo: repo, retry: defaultRetryConfig}
}

// Flush commits one batch: in-batch dedup (last occurrence
// wins), existence probe, classify insert-vs-update, bulk insert ignoring
// duplicate-key conflicts, and a single-transaction bulk update. An empty
// batch is a no-op returning a zero FlushResult.
func (w *BatchWriter) Flush(ctx context.Context, items []BatchItem) (FlushResult, error) {
	if len(items) == 0 {
		return FlushResult{}, nil
	}

	// In-batch dedup: last occurrence of a given CustomerID wins, and the
	// order items were appended in determines "last" since items arrive in
	// file order.
	order := make([]string, 0, len(items))
	deduped := make(map[string]BatchItem, len(items))
	for _, item := range items {
		id := item.Customer.CustomerID
		if _, seen := deduped[id]; !seen {
			order = append(order, id)
		}
		deduped[id] = item
	}

	ids := make([]string, 0, len(deduped))
	for _, id := range order {
		ids = append(ids, id)
	}

	var existing map[string]bool
	if err := withRetry(ctx, w.retry, func() error {
		var err error
		existing, err = w.repo.ExistingIDs(ctx, ids)
		return err
	}); err != nil {
		return FlushResult{}, err
	}

	var toInsert, toUpdate []domain.Customer
	for _, id := range order {
		c := deduped[id].Customer
		if existing[id] {
			toUpdate = append(toUpdate, c)
		} else {
			toInsert = append(toInsert, c)
		}
	}

	affected := 0
	if len(toInsert) > 0 {
		var n int
		if err := withRetry(ctx, w.retry, func() error {
			var err error
			n, err = w.repo.BulkInsert(ctx, toInsert)
			return err
		}); err != nil {
			return FlushResult{}, err
		}
		affected += n
	}
	if len(toUpdate) > 0 {
		var n int
		if err := withRetry(ctx, w.retry, func() error {
			var err error
			n, err = w.repo.BulkUpdate(ctx, toUpdate)
			return err
		}); err != nil {
			return FlushResult{}, err
		}
		affected += n
	}

	lastID := order[len(order)-1]
	return FlushResult{Affected: affected, LastHash: deduped[lastID].Hash}, nil
}
