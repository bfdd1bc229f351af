package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/customer-import/internal/ingest"
)

// readSSEFrames reads up to n data frames from an SSE stream.
func readSSEFrames(t *testing.T, r *bufio.Reader, n int, timeout time.Duration) []map[string]any {
	t.Helper()
	frames := make([]map[string]any, 0, n)
	deadline := time.Now().Add(timeout)
	for len(frames) < n && time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}

// S6: an observer joining mid-run sees a snapshot first, then progress,
// then exactly one done, then heartbeats only.
func TestHandleProgressStream_SnapshotThenLiveTail(t *testing.T) {
	repo := newFakeCustomerRepo()
	h, jobs, _ := newTestStack(t, repo)

	job, err := jobs.Create(context.Background(), "/tmp/customers.csv")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleProgressStream))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?totalRows=10", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	// First frame is always the snapshot.
	first := readSSEFrames(t, reader, 1, 2*time.Second)
	require.Len(t, first, 1)
	assert.Equal(t, "snapshot", first[0]["type"])
	assert.Equal(t, "RUNNING", first[0]["status"])

	// Give the handler time to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	h.broker.Publish(ingest.Event{
		Type:  ingest.EventProgress,
		JobID: job.ID,
		Progress: &ingest.ProgressFrame{
			JobID:         job.ID,
			RowsProcessed: 5,
			RowsInserted:  5,
			BytesRead:     512,
			Rate:          100,
			ElapsedSec:    0.05,
		},
	})
	h.broker.Publish(ingest.Event{Type: ingest.EventDone, JobID: job.ID})

	// Heartbeats may interleave anywhere; the substantive frames must be
	// the progress frame followed by exactly one done.
	tail := readSSEFrames(t, reader, 6, 2*time.Second)
	var substantive []map[string]any
	for _, frame := range tail {
		if frame["type"] != "heartbeat" {
			substantive = append(substantive, frame)
		}
	}
	require.GreaterOrEqual(t, len(substantive), 2)

	assert.Equal(t, "progress", substantive[0]["type"])
	assert.Equal(t, "5", substantive[0]["rowsProcessed"])
	assert.Equal(t, "512", substantive[0]["bytesRead"])

	assert.Equal(t, "done", substantive[1]["type"])
	assert.Equal(t, job.ID, substantive[1]["jobId"])
	assert.Len(t, substantive, 2)
}

func TestHandleProgressStream_HeartbeatArrives(t *testing.T) {
	h, _, _ := newTestStack(t, newFakeCustomerRepo())

	srv := httptest.NewServer(http.HandlerFunc(h.HandleProgressStream))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	frames := readSSEFrames(t, reader, 2, 2*time.Second)
	require.Len(t, frames, 2)
	assert.Equal(t, "snapshot", frames[0]["type"])
	assert.Equal(t, "heartbeat", frames[1]["type"])
	_, err = time.Parse(time.RFC3339, frames[1]["ts"].(string))
	assert.NoError(t, err)
}

func TestHandleProgressStream_LateJoinerSeesStickyTerminal(t *testing.T) {
	h, jobs, _ := newTestStack(t, newFakeCustomerRepo())
	job, err := jobs.Create(context.Background(), "/tmp/customers.csv")
	require.NoError(t, err)
	require.NoError(t, jobs.MarkCompleted(context.Background(), job.ID))
	h.broker.Publish(ingest.Event{Type: ingest.EventDone, JobID: job.ID})

	srv := httptest.NewServer(http.HandlerFunc(h.HandleProgressStream))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	frames := readSSEFrames(t, reader, 2, 2*time.Second)
	require.Len(t, frames, 2)
	assert.Equal(t, "snapshot", frames[0]["type"])
	assert.Equal(t, "COMPLETED", frames[0]["status"])
	assert.Equal(t, "done", frames[1]["type"])
}
