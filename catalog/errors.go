package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

// UpstreamError is returned for any provider response outside the accepted statuses
// of a call, and for transport failures (Status 0).
type UpstreamError struct {
	Status  int
	Message string
	Timeout bool
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("catalog upstream: %s", e.Message)
	}
	return fmt.Sprintf("catalog upstream: status %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func statusOf(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status
	}
	return -1
}

func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

func IsRateLimited(err error) bool {
	return statusOf(err) == http.StatusTooManyRequests
}

// IsUnauthorized reports a rejected credential, which means the user must re-link.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}
