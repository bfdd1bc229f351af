package ingest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ignite/customer-import/internal/domain"
)

// DefaultRecentLimit, DefaultHeartbeatMs and DefaultTotalRows mirror the
// IMPORT_RECENT_LIMIT, SSE_HEARTBEAT_MS and IMPORT_TOTAL_ROWS defaults.
const (
	DefaultRecentLimit       = 20
	DefaultHeartbeatMs       = 15000
	DefaultTotalRows   int64 = 2_000_000
	subscriberBuffer         = 64
)

// EventType discriminates the frames a subscriber receives.
type EventType string

const (
	EventSnapshot  EventType = "snapshot"
	EventProgress  EventType = "progress"
	EventDone      EventType = "done"
	EventError     EventType = "error"
	EventHeartbeat EventType = "heartbeat"
)

// Event is a single frame published to the broker's subscribers. Exactly
// one of Snapshot/Progress is populated depending on Type; JobID and Err
// are populated for progress/done/error; Heartbeat carries its own
// timestamp only.
type Event struct {
	Type      EventType
	JobID     string
	Snapshot  *Snapshot
	Progress  *ProgressFrame
	Err       string
	Heartbeat time.Time
}

// ProgressFrame is the `progress` event payload. Counters are carried as
// int64 here; HTTP serialization renders them as strings to preserve
// 64-bit precision for JSON clients.
type ProgressFrame struct {
	JobID         string
	RowsProcessed int64
	RowsInserted  int64
	BytesRead     int64
	Rate          float64
	ElapsedSec    float64
	LastRowHash   string
}

// Snapshot is the derived, read-only view of the latest import job.
type Snapshot struct {
	JobID            string
	Status           domain.JobStatus
	RowsProcessed    int64
	RowsInserted     int64
	BytesRead        int64
	Percent          float64
	RateRowsPerSec   float64
	ElapsedSec       float64
	EtaSec           *float64
	StartedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
	Error            string
	DisableSync      bool
	RecentCustomers  []domain.Customer
}

// Broker computes progress snapshots and multiplexes live worker events
// to N observers. Producers are never blocked by slow subscribers:
// each subscriber has a bounded buffer and progress frames are dropped
// (not the subscriber) when it's full; terminal frames are delivered
// reliably via a sticky "last terminal" frame replayed to late joiners.
type Broker struct {
	jobs      JobStore
	customers CustomerRepo

	mu           sync.Mutex
	subscribers  map[chan Event]struct{}
	lastTerminal *Event

	// Recent-customers cache, refreshed lazily and invalidated by the
	// postgres commit listener so many concurrent observers don't each
	// re-query the customers table.
	recentMu      sync.Mutex
	recentRows    []domain.Customer
	recentKey     string
	recentExpires time.Time
}

// NewBroker returns a Broker reading job/customer state from the given
// stores and fanning out events published via Publish.
func NewBroker(jobs JobStore, customers CustomerRepo) *Broker {
	return &Broker{
		jobs:        jobs,
		customers:   customers,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Snapshot computes the current progress view: the most recent
// job (preferring RUNNING), its derived rate/percent/ETA fields, and up
// to recentLimit recently-updated Customer rows when the job is RUNNING
// or COMPLETED.
func (b *Broker) Snapshot(ctx context.Context, totalRows int64, recentLimit int) (*Snapshot, error) {
	if totalRows <= 0 {
		totalRows = DefaultTotalRows
	}
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	if recentLimit > 200 {
		recentLimit = 200
	}

	job, err := b.jobs.FindLatestRunning(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		job, err = b.jobs.FindLatest(ctx)
		if err != nil {
			return nil, err
		}
	}
	if job == nil {
		return &Snapshot{
			Status:      domain.JobIdle,
			DisableSync: false,
		}, nil
	}

	snap := deriveSnapshot(job, totalRows)

	if job.Status == domain.JobRunning || job.Status == domain.JobCompleted {
		recent, err := b.recentCustomers(ctx, job.StartedAt, recentLimit)
		if err != nil {
			return nil, err
		}
		snap.RecentCustomers = recent
	}
	return snap, nil
}

// recentCacheTTL bounds staleness between commit notifications; the
// commit listener usually invalidates the cache well before it expires.
const recentCacheTTL = 2 * time.Second

func (b *Broker) recentCustomers(ctx context.Context, since time.Time, limit int) ([]domain.Customer, error) {
	key := fmt.Sprintf("%d|%d", since.UnixNano(), limit)

	b.recentMu.Lock()
	if b.recentKey == key && time.Now().Before(b.recentExpires) {
		rows := b.recentRows
		b.recentMu.Unlock()
		return rows, nil
	}
	b.recentMu.Unlock()

	rows, err := b.customers.RecentSince(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	b.recentMu.Lock()
	b.recentRows = rows
	b.recentKey = key
	b.recentExpires = time.Now().Add(recentCacheTTL)
	b.recentMu.Unlock()
	return rows, nil
}

// InvalidateRecent drops the recent-customers cache. Wired to the
// postgres customer_committed notification channel.
func (b *Broker) InvalidateRecent() {
	b.recentMu.Lock()
	b.recentKey = ""
	b.recentMu.Unlock()
}

// deriveSnapshot is a pure function of the job row, totalRows, and
// "now" alone, so the same persisted job always yields the same view.
func deriveSnapshot(job *domain.ImportJob, totalRows int64) *Snapshot {
	now := time.Now()
	end := now
	if job.CompletedAt != nil {
		end = *job.CompletedAt
	}
	elapsed := end.Sub(job.StartedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	rate := 0.0
	if elapsed > 0 {
		rate = float64(job.RowsProcessed) / elapsed
	}

	percent := 0.0
	if totalRows > 0 {
		percent = float64(job.RowsProcessed) / float64(totalRows) * 100
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	var eta *float64
	if rate > 0 {
		remaining := float64(totalRows - job.RowsProcessed)
		if remaining < 0 {
			remaining = 0
		}
		v := math.Ceil(remaining / rate)
		eta = &v
	}

	return &Snapshot{
		JobID:          job.ID,
		Status:         job.Status,
		RowsProcessed:  job.RowsProcessed,
		RowsInserted:   job.RowsInserted,
		BytesRead:      job.BytesRead,
		Percent:        percent,
		RateRowsPerSec: rate,
		ElapsedSec:     elapsed,
		EtaSec:         eta,
		StartedAt:      job.StartedAt,
		UpdatedAt:      job.UpdatedAt,
		CompletedAt:    job.CompletedAt,
		Error:          job.Error,
		DisableSync:    job.Status == domain.JobRunning,
	}
}

// Subscribe registers a new observer and returns its event channel plus
// an unsubscribe function. The channel is pre-seeded only with the last
// terminal event, when one has been published; the caller (the SSE
// handler) is responsible for sending the initial snapshot frame itself
// after calling Snapshot.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	last := b.lastTerminal
	b.mu.Unlock()

	// A late joiner after a terminal transition still needs to observe it,
	// since a fresh Snapshot() call already reflects the terminal status;
	// replaying it here additionally satisfies subscribers who only read
	// the event channel.
	if last != nil {
		select {
		case ch <- *last:
		default:
		}
	}

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subscribers, ch)
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish fans an event out to every current subscriber. progress events
// are dropped for a subscriber whose buffer is full; done/error events
// are delivered reliably by blocking briefly and, failing that, are still
// recoverable via the sticky lastTerminal frame replayed to new
// subscribers and via Snapshot on reconnect.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	if ev.Type == EventDone || ev.Type == EventError {
		b.lastTerminal = &ev
	}
	subs := make([]chan Event, 0, len(b.subscribers))
	for ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	reliable := ev.Type == EventDone || ev.Type == EventError
	for _, ch := range subs {
		if reliable {
			select {
			case ch <- ev:
			case <-time.After(2 * time.Second):
			}
			continue
		}
		select {
		case ch <- ev:
		default:
			// Drop-oldest: make room for the freshest progress frame rather
			// than stall the publisher.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
