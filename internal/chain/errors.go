package chain

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrBlockNotFound is returned when the provider has no block at a height.
var ErrBlockNotFound = errors.New("block not found")

// Classify buckets an RPC error into a status label.
func Classify(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, ErrBlockNotFound) {
		return "not_found"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return "timeout"
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests"):
		return "rate_limited"
	case strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "504") ||
		strings.Contains(lower, "bad gateway") || strings.Contains(lower, "service unavailable"):
		return "server_error"
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "broken pipe") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network is unreachable") || strings.Contains(lower, "eof"):
		return "network_error"
	default:
		return "client_error"
	}
}

// IsTransient reports whether err is worth retrying: timeouts, dropped
// connections, throttling and gateway errors.
func IsTransient(err error) bool {
	switch Classify(err) {
	case "timeout", "rate_limited", "server_error", "network_error":
		return true
	default:
		return false
	}
}
