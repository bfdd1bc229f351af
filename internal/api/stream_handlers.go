package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/customer-import/internal/ingest"
	"github.com/ignite/customer-import/internal/pkg/logger"
)

// HandleProgressStream serves the live progress event stream.
// GET /api/v1/customers/progress/stream?totalRows&recentLimit
//
// Each subscriber receives exactly one snapshot frame, then the live tail
// of worker events, with heartbeats at the configured cadence. The stream
// ends when the client disconnects; a slow client only loses progress
// frames (the broker drops those per subscriber), never terminal frames.
func (h *Handlers) HandleProgressStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	totalRows := h.parseTotalRows(r.URL.Query().Get("totalRows"))
	recentLimit := h.parseRecentLimit(r.URL.Query().Get("recentLimit"))

	snap, err := h.broker.Snapshot(r.Context(), totalRows, recentLimit)
	if err != nil {
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := h.broker.Subscribe()
	defer unsubscribe()

	if err := writeSSE(w, flusher, toSnapshotResponse(snap)); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.defaults.Heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			frame := map[string]string{
				"type": "heartbeat",
				"ts":   time.Now().UTC().Format(time.RFC3339),
			}
			if err := writeSSE(w, flusher, frame); err != nil {
				return
			}
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := eventPayload(ev)
			if err != nil {
				logger.Warn("sse: skip unserializable event", "type", string(ev.Type))
				continue
			}
			if payload == nil {
				continue
			}
			if err := writeSSE(w, flusher, payload); err != nil {
				return
			}
		}
	}
}

// eventPayload converts a broker event into its wire shape. Snapshot
// events never arrive via the broker channel (the handler sends its own),
// so only progress/done/error are mapped.
func eventPayload(ev ingest.Event) (any, error) {
	switch ev.Type {
	case ingest.EventProgress:
		if ev.Progress == nil {
			return nil, fmt.Errorf("progress event without frame")
		}
		return toProgressEvent(ev.Progress), nil
	case ingest.EventDone:
		return map[string]string{"type": "done", "jobId": ev.JobID}, nil
	case ingest.EventError:
		return map[string]string{"type": "error", "jobId": ev.JobID, "error": ev.Err}, nil
	default:
		return nil, nil
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
