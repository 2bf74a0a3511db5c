package commerce

import (
	"fmt"
	"net/http"
)

// APIError carries the backend's HTTP status and raw payload. The payload is
// preserved verbatim so callers can pattern-match error signatures (e.g.
// expired-session detection on 401 bodies).
type APIError struct {
	Operation string
	Status    int
	Body      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce %s failed with status %d: %s", e.Operation, e.Status, e.Body)
}

// Retryable classifies the status for the retry executor: request timeout,
// throttling and upstream 5xx failures are safe to repeat.
func (e *APIError) Retryable() bool {
	switch e.Status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Unauthorized reports whether the failure is an authentication expiry.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}
