package linkedin

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrPaginationLoop signals a broken continuation contract: the upstream
// kept returning page tokens past the hard page cap. Fatal, never retried.
var ErrPaginationLoop = errors.New("pagination exceeded maximum page count")

// UpstreamError is a non-2xx response from the upstream API. 4xx responses
// are caller/config errors and are not retried; 5xx responses are retried
// by the orchestrator with backoff.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Message)
}

// Retryable reports whether the orchestrator may retry the request.
func (e *UpstreamError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError
}

// UpstreamTimeoutError is a request that timed out or was cut off by its
// deadline. Retried by the orchestrator with backoff.
type UpstreamTimeoutError struct {
	Cause error
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("upstream request timed out: %v", e.Cause)
}

func (e *UpstreamTimeoutError) Unwrap() error { return e.Cause }
