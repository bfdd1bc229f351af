package api

import (
	"strconv"
	"time"

	"github.com/ignite/customer-import/internal/domain"
	"github.com/ignite/customer-import/internal/ingest"
)

// Defaults carries the configured fallbacks applied when a request omits
// a knob (IMPORT_* and SSE_HEARTBEAT_MS environment variables).
type Defaults struct {
	TotalRows       int64
	RecentLimit     int
	BatchSize       int
	ProgressEveryMs int
	Heartbeat       time.Duration
}

// Handlers carries the collaborators every HTTP handler needs.
type Handlers struct {
	supervisor *ingest.Supervisor
	broker     *ingest.Broker
	customers  ingest.CustomerRepo
	jobs       ingest.JobStore
	defaults   Defaults
}

// NewHandlers wires the handler set.
func NewHandlers(supervisor *ingest.Supervisor, broker *ingest.Broker, customers ingest.CustomerRepo, jobs ingest.JobStore, defaults Defaults) *Handlers {
	return &Handlers{
		supervisor: supervisor,
		broker:     broker,
		customers:  customers,
		jobs:       jobs,
		defaults:   defaults,
	}
}

// jobResponse is the serialized ImportJob returned by POST /customers/sync.
// Counters are string-encoded to preserve 64-bit precision in JSON
// consumers that assume 53-bit integers.
type jobResponse struct {
	ID            string     `json:"id"`
	FilePath      string     `json:"filePath"`
	Status        string     `json:"status"`
	BytesRead     string     `json:"bytesRead"`
	RowsProcessed string     `json:"rowsProcessed"`
	RowsInserted  string     `json:"rowsInserted"`
	LastRowHash   string     `json:"lastRowHash,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Error         string     `json:"error,omitempty"`
}

func toJobResponse(j *domain.ImportJob) jobResponse {
	return jobResponse{
		ID:            j.ID,
		FilePath:      j.FilePath,
		Status:        string(j.Status),
		BytesRead:     strconv.FormatInt(j.BytesRead, 10),
		RowsProcessed: strconv.FormatInt(j.RowsProcessed, 10),
		RowsInserted:  strconv.FormatInt(j.RowsInserted, 10),
		LastRowHash:   j.LastRowHash,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
		UpdatedAt:     j.UpdatedAt,
		Error:         j.Error,
	}
}

// snapshotResponse is the derived progress view as served by GET
// /customers/progress and as the first SSE frame.
type snapshotResponse struct {
	Type            string            `json:"type"`
	JobID           string            `json:"jobId,omitempty"`
	Status          string            `json:"status"`
	RowsProcessed   string            `json:"rowsProcessed"`
	RowsInserted    string            `json:"rowsInserted"`
	BytesRead       string            `json:"bytesRead"`
	Percent         float64           `json:"percent"`
	RateRowsPerSec  float64           `json:"rateRowsPerSec"`
	ElapsedSec      float64           `json:"elapsedSec"`
	EtaSec          *float64          `json:"etaSec"`
	StartedAt       *time.Time        `json:"startedAt,omitempty"`
	UpdatedAt       *time.Time        `json:"updatedAt,omitempty"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
	Error           string            `json:"error,omitempty"`
	DisableSync     bool              `json:"disableSync"`
	RecentCustomers []domain.Customer `json:"recentCustomers"`
}

func toSnapshotResponse(s *ingest.Snapshot) snapshotResponse {
	resp := snapshotResponse{
		Type:            "snapshot",
		JobID:           s.JobID,
		Status:          string(s.Status),
		RowsProcessed:   strconv.FormatInt(s.RowsProcessed, 10),
		RowsInserted:    strconv.FormatInt(s.RowsInserted, 10),
		BytesRead:       strconv.FormatInt(s.BytesRead, 10),
		Percent:         s.Percent,
		RateRowsPerSec:  s.RateRowsPerSec,
		ElapsedSec:      s.ElapsedSec,
		EtaSec:          s.EtaSec,
		CompletedAt:     s.CompletedAt,
		Error:           s.Error,
		DisableSync:     s.DisableSync,
		RecentCustomers: s.RecentCustomers,
	}
	if resp.RecentCustomers == nil {
		resp.RecentCustomers = []domain.Customer{}
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		resp.StartedAt = &t
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

// progressEvent is the `progress` wire payload.
type progressEvent struct {
	Type          string  `json:"type"`
	JobID         string  `json:"jobId"`
	RowsProcessed string  `json:"rowsProcessed"`
	RowsInserted  string  `json:"rowsInserted"`
	BytesRead     string  `json:"bytesRead"`
	Rate          float64 `json:"rate"`
	ElapsedSec    float64 `json:"elapsedSec"`
	LastRowHash   string  `json:"lastRowHash,omitempty"`
}

func toProgressEvent(f *ingest.ProgressFrame) progressEvent {
	return progressEvent{
		Type:          "progress",
		JobID:         f.JobID,
		RowsProcessed: strconv.FormatInt(f.RowsProcessed, 10),
		RowsInserted:  strconv.FormatInt(f.RowsInserted, 10),
		BytesRead:     strconv.FormatInt(f.BytesRead, 10),
		Rate:          f.Rate,
		ElapsedSec:    f.ElapsedSec,
		LastRowHash:   f.LastRowHash,
	}
}

// parseTotalRows reads the totalRows query param, falling back to the
// configured default when it is empty, unparseable or not positive. No
// upper bound is applied.
func (h *Handlers) parseTotalRows(raw string) int64 {
	if raw == "" {
		return h.defaults.TotalRows
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return h.defaults.TotalRows
	}
	return n
}

func (h *Handlers) parseRecentLimit(raw string) int {
	if raw == "" {
		return h.defaults.RecentLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return h.defaults.RecentLimit
	}
	if n > 200 {
		n = 200
	}
	return n
}
