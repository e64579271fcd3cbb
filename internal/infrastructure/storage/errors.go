// Package storage implements the quota-aware upload path: a typed
// error model shared by the backends, a retrying upload executor and
// the router that fails over between the primary and overflow stores.
package storage

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/pkoster/beleghub/internal/core/domain"
)

// StatusError is a non-2xx response from an object-storage backend.
type StatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "storage status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("storage %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("storage %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

var transientMessagePattern = regexp.MustCompile(
	`(?i)timeout|timed out|connection reset|connection refused|temporarily|network|unexpected eof|broken pipe`,
)

// IsTransient reports whether a storage error is likely to succeed on
// retry: a retryable status code or a timeout/network-shaped message.
// Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || domain.IsCanceled(err) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case 425, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return transientMessagePattern.MatchString(err.Error())
}
