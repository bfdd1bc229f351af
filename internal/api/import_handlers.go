package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ignite/customer-import/internal/ingest"
	"github.com/ignite/customer-import/internal/pkg/httputil"
)

// syncRequest is the POST /customers/sync body. Unknown fields are
// rejected; ranges are enforced by ingest.RunParams.Validate.
type syncRequest struct {
	FilePath              string `json:"filePath"`
	BatchSize             int    `json:"batchSize"`
	ProgressUpdateEveryMs int    `json:"progressUpdateEveryMs"`
	TotalRows             int64  `json:"totalRows"`
}

// HandleSync starts (or resumes) the bulk import.
// POST /api/v1/customers/sync
func (h *Handlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	// An empty body is allowed; every field has a server-side default.
	var req syncRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && err != io.EOF {
		httputil.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	params := ingest.RunParams{
		BatchSize:       req.BatchSize,
		ProgressEveryMs: req.ProgressUpdateEveryMs,
		TotalRows:       req.TotalRows,
	}
	if params.BatchSize == 0 {
		params.BatchSize = h.defaults.BatchSize
	}
	if params.ProgressEveryMs == 0 {
		params.ProgressEveryMs = h.defaults.ProgressEveryMs
	}
	if params.TotalRows == 0 {
		params.TotalRows = h.defaults.TotalRows
	}

	job, err := h.supervisor.Start(r.Context(), ingest.StartRequest{
		FilePath: req.FilePath,
		Params:   params,
	})
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrConflict):
			current, _ := h.jobs.FindLatestRunning(r.Context())
			payload := map[string]any{"error": err.Error()}
			if current != nil {
				payload["jobId"] = current.ID
				payload["status"] = string(current.Status)
			}
			httputil.JSON(w, http.StatusConflict, payload)
		case errors.Is(err, ingest.ErrFileNotFound), errors.Is(err, ingest.ErrInvalidParams):
			httputil.BadRequest(w, err.Error())
		default:
			respondSafeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	httputil.OK(w, toJobResponse(job))
}

// HandleProgress serves the derived progress snapshot.
// GET /api/v1/customers/progress?totalRows&recentLimit
func (h *Handlers) HandleProgress(w http.ResponseWriter, r *http.Request) {
	totalRows := h.parseTotalRows(r.URL.Query().Get("totalRows"))
	recentLimit := h.parseRecentLimit(r.URL.Query().Get("recentLimit"))

	snap, err := h.broker.Snapshot(r.Context(), totalRows, recentLimit)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err)
		return
	}
	httputil.OK(w, toSnapshotResponse(snap))
}
