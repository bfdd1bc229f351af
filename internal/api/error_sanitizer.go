package api

import (
	"net/http"
	"strings"

	"github.com/ignite/customer-import/internal/pkg/httputil"
	"github.com/ignite/customer-import/internal/pkg/logger"
)

// =============================================================================
// ERROR SANITIZER
// Ensures internal errors (database details, file paths) are NEVER leaked
// to API consumers. All 5xx errors return generic safe messages while the
// full error is logged server-side for debugging.
// =============================================================================

// respondSafeError logs the full internal error and sends a sanitized
// JSON error response to the client.
func respondSafeError(w http.ResponseWriter, code int, internalErr error) {
	msg := safeErrorMessage(code, internalErr)
	if internalErr != nil {
		logger.Error("request failed", "status", code, "error", internalErr.Error())
	}
	httputil.Error(w, code, msg)
}

// safeErrorMessage maps common internal error patterns to public-safe
// messages. 4xx messages describe user input and pass through; 5xx
// messages are genericized.
func safeErrorMessage(code int, internalErr error) string {
	if code < 500 {
		if internalErr != nil {
			return internalErr.Error()
		}
		return "Bad request"
	}

	if internalErr == nil {
		return "An internal error occurred"
	}

	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp"):
		return "Service temporarily unavailable"

	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled"):
		return "Request timed out"

	case strings.Contains(errStr, "sql") ||
		strings.Contains(errStr, "pq:") ||
		strings.Contains(errStr, "query") ||
		strings.Contains(errStr, "scan") ||
		strings.Contains(errStr, "transaction") ||
		strings.Contains(errStr, "database"):
		return "A database error occurred"

	default:
		return "An internal error occurred"
	}
}
