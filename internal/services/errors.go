package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel markers for collaborator failures. Clients wrap their errors with
// one of these so callers can classify without string matching.
var (
	ErrAuth        = errors.New("authentication error")
	ErrPermission  = errors.New("permission error")
	ErrRateLimited = errors.New("rate limited upstream")
	ErrServer      = errors.New("server error")
	ErrClient      = errors.New("client error")
	ErrNetwork     = errors.New("network error")
	ErrValidation  = errors.New("validation error")
	ErrUnknown     = errors.New("unknown error")
)

// Kind is the stable failure classification carried on lifecycle events and
// history records.
type Kind string

const (
	KindAuth        Kind = "authentication_error"
	KindPermission  Kind = "permission_error"
	KindRateLimited Kind = "rate_limit_error"
	KindServer      Kind = "server_error"
	KindClient      Kind = "client_error"
	KindNetwork     Kind = "network_error"
	KindValidation  Kind = "validation_error"
	KindUnknown     Kind = "unknown_error"
)

// Wrap builds an error message that includes collaborator context while
// tagging it with the provided marker for later classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrUnknown
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the Kind the pipeline should report. Network-level
// failures are detected even when unwrapped (timeouts, refused connections).
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrPermission):
		return KindPermission
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrServer):
		return KindServer
	case errors.Is(err, ErrClient):
		return KindClient
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNetwork), isNetworkError(err):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// ClassifyStatus maps an HTTP status code to the matching sentinel marker.
func ClassifyStatus(status int) error {
	switch {
	case status == 401:
		return ErrAuth
	case status == 403:
		return ErrPermission
	case status == 429:
		return ErrRateLimited
	case status >= 500:
		return ErrServer
	case status >= 400:
		return ErrClient
	default:
		return ErrUnknown
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
