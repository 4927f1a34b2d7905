package workplace

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout is wrapped by every error caused by the per-request deadline.
var ErrTimeout = errors.New("workplace: request timed out")

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	Op         string
	StatusCode int
	Type       string
	Code       int
	Message    string
	TraceID    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("workplace %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("workplace %s: status %d: %s (%s, code %d)", e.Op, e.StatusCode, e.Message, e.Type, e.Code)
}

// Error kinds reported by Kind.
const (
	KindTimeout = "timeout"
	KindAPI     = "api"
	KindNetwork = "network"
)

// Kind classifies err for logging and metrics.
func Kind(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.As(err, &apiErr):
		return KindAPI
	default:
		return KindNetwork
	}
}

// wrapTransport tags deadline failures with ErrTimeout. A cancelled parent
// context is passed through untouched so shutdowns are not reported as
// timeouts.
func wrapTransport(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("workplace %s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("workplace %s: %w", op, err)
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}
