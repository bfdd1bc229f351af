package ingest

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Bounds for the request-tunable import knobs.
const (
	MinBatchSize     = 100
	MaxBatchSize     = 10000
	DefaultBatchSize = 1000

	MinProgressEveryMs     = 200
	MaxProgressEveryMs     = 30000
	DefaultProgressEveryMs = 1000

	MinTotalRows = 1
	MaxTotalRows = 50_000_000
)

// RunParams are the bounded, validated knobs accepted by POST
// /customers/sync.
type RunParams struct {
	BatchSize       int
	ProgressEveryMs int
	TotalRows       int64
}

// Validate clamps zero-value fields to their defaults and rejects values
// outside the allowed range.
func (p *RunParams) Validate() error {
	if p.BatchSize == 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.ProgressEveryMs == 0 {
		p.ProgressEveryMs = DefaultProgressEveryMs
	}
	if p.TotalRows == 0 {
		p.TotalRows = DefaultTotalRows
	}
	if p.BatchSize < MinBatchSize || p.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: batchSize must be in [%d, %d]", ErrInvalidParams, MinBatchSize, MaxBatchSize)
	}
	if p.ProgressEveryMs < MinProgressEveryMs || p.ProgressEveryMs > MaxProgressEveryMs {
		return fmt.Errorf("%w: progressEveryMs must be in [%d, %d]", ErrInvalidParams, MinProgressEveryMs, MaxProgressEveryMs)
	}
	if p.TotalRows < MinTotalRows || p.TotalRows > MaxTotalRows {
		return fmt.Errorf("%w: totalRows must be in [%d, %d]", ErrInvalidParams, MinTotalRows, MaxTotalRows)
	}
	return nil
}

// ResumeData carries the persisted checkpoint into a resumed run.
type ResumeData struct {
	StartBytes    int64
	OverlapBytes  int64
	LastRowHash   string
	RowsProcessed int64
	RowsInserted  int64
}

// Worker owns end-to-end execution of one import job: read, map,
// batch, commit, persist progress, emit events.
type Worker struct {
	jobID      string
	filePath   string
	params     RunParams
	resume     *ResumeData
	readBuffer int

	mapper  *Mapper
	writer  *BatchWriter
	jobs    JobStore
	broker  *Broker
	archive Archiver
}

// NewWorker constructs a Worker for one job run. archive may be nil, in
// which case the completed source file is not archived. readBuffer is the
// parser read-ahead in bytes; 0 selects the default.
func NewWorker(jobID, filePath string, params RunParams, resume *ResumeData, readBuffer int, mapper *Mapper, writer *BatchWriter, jobs JobStore, broker *Broker, archive Archiver) *Worker {
	return &Worker{
		jobID:      jobID,
		filePath:   filePath,
		params:     params,
		resume:     resume,
		readBuffer: readBuffer,
		mapper:     mapper,
		writer:     writer,
		jobs:       jobs,
		broker:     broker,
		archive:    archive,
	}
}

// Run executes the import to completion or fatal error. It never panics
// on a clean worker error: Worker translates everything into a durable
// terminal job transition and a matching broker event.
func (w *Worker) Run(ctx context.Context) {
	err := w.runOnce(ctx)
	if err != nil {
		msg := err.Error()
		_ = w.jobs.MarkFailed(context.Background(), w.jobID, msg)
		w.broker.Publish(Event{Type: EventError, JobID: w.jobID, Err: msg})
		return
	}
	if err := w.jobs.MarkCompleted(context.Background(), w.jobID); err != nil {
		// Terminal job-store write failed; the done event still fires.
		// Observers reconcile against the job row on their next snapshot.
		_ = err
	}
	w.broker.Publish(Event{Type: EventDone, JobID: w.jobID})
	if w.archive != nil {
		_ = w.archive.Archive(context.Background(), w.jobID, w.filePath)
	}
}

func (w *Worker) runOnce(ctx context.Context) error {
	var header []string
	startBytes := int64(0)
	seenMarker := true
	rowsProcessed := int64(0)
	rowsInserted := int64(0)
	baselineRowsProcessed := int64(0)
	lastRowHash := ""

	if w.resume != nil {
		overlap := w.resume.OverlapBytes
		if overlap == 0 {
			overlap = DefaultResumeOverlapBytes
		}
		startBytes = w.resume.StartBytes - overlap
		if startBytes < 0 {
			startBytes = 0
		}
		seenMarker = w.resume.LastRowHash == ""
		rowsProcessed = w.resume.RowsProcessed
		rowsInserted = w.resume.RowsInserted
		baselineRowsProcessed = w.resume.RowsProcessed
		lastRowHash = w.resume.LastRowHash

		if startBytes > 0 {
			// Resuming into the middle of the file: column names are
			// stable for the job, so read the header once from offset 0.
			hp, err := NewParser(w.filePath, 0, nil, w.readBuffer)
			if err != nil {
				return err
			}
			header = hp.Header()
			hp.Close()
		}
	}

	parser, err := NewParser(w.filePath, startBytes, header, w.readBuffer)
	if err != nil {
		return err
	}
	defer parser.Close()

	started := time.Now()
	lastProgressAt := time.Time{}
	pending := make([]BatchItem, 0, w.params.BatchSize)

	flush := func(force bool) error {
		if len(pending) == 0 {
			if force {
				return w.maybePersistProgress(ctx, true, parser.BytesRead(), rowsProcessed, rowsInserted, lastRowHash, started, baselineRowsProcessed, &lastProgressAt)
			}
			return nil
		}
		result, err := w.writer.Flush(ctx, pending)
		if err != nil {
			return err
		}
		rowsInserted += int64(result.Affected)
		if result.LastHash != "" {
			lastRowHash = result.LastHash
		}
		pending = pending[:0]
		return w.maybePersistProgress(ctx, force, parser.BytesRead(), rowsProcessed, rowsInserted, lastRowHash, started, baselineRowsProcessed, &lastProgressAt)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		customer := w.mapper.Map(record)
		if customer == nil {
			continue
		}
		hash := w.mapper.Hash(customer)

		if !seenMarker {
			if hash == lastRowHash {
				seenMarker = true
			}
			continue
		}

		rowsProcessed++
		pending = append(pending, BatchItem{Customer: *customer, Hash: hash})

		if len(pending) >= w.params.BatchSize {
			if err := flush(false); err != nil {
				return err
			}
		}
	}

	if err := flush(true); err != nil {
		return err
	}
	return nil
}

// maybePersistProgress rate-limits checkpoint writes by progressEveryMs
// and, when admitted, persists the checkpoint and emits a progress event.
func (w *Worker) maybePersistProgress(ctx context.Context, force bool, bytesRead, rowsProcessed, rowsInserted int64, lastRowHash string, started time.Time, baselineRowsProcessed int64, lastProgressAt *time.Time) error {
	now := time.Now()
	if !force && !lastProgressAt.IsZero() && now.Sub(*lastProgressAt) < time.Duration(w.params.ProgressEveryMs)*time.Millisecond {
		return nil
	}
	*lastProgressAt = now

	if err := w.jobs.UpdateProgress(ctx, w.jobID, bytesRead, rowsProcessed, rowsInserted, lastRowHash); err != nil {
		return err
	}

	elapsed := now.Sub(started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(rowsProcessed-baselineRowsProcessed) / elapsed
	}
	w.broker.Publish(Event{
		Type:  EventProgress,
		JobID: w.jobID,
		Progress: &ProgressFrame{
			JobID:         w.jobID,
			RowsProcessed: rowsProcessed,
			RowsInserted:  rowsInserted,
			BytesRead:     bytesRead,
			Rate:          rate,
			ElapsedSec:    elapsed,
			LastRowHash:   lastRowHash,
		},
	})
	return nil
}
