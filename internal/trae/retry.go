package trae

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// newRetryPolicy retries transient failures maxRetries times with a fixed
// delay, so a persistently failing call makes exactly 1+maxRetries attempts.
// Authentication and decode errors are returned on the first attempt.
func newRetryPolicy(maxRetries int, delay time.Duration, log *slog.Logger) retrypolicy.RetryPolicy[[]byte] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if delay < 0 {
		delay = 0
	}

	return retrypolicy.NewBuilder[[]byte]().
		HandleIf(func(_ []byte, err error) bool {
			return IsTransient(err)
		}).
		WithMaxRetries(maxRetries).
		WithDelay(delay).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[[]byte]) {
			log.Warn("retrying trae request",
				"attempt", e.Attempts(),
				"max_retries", maxRetries,
				"error", e.LastError(),
			)
		}).
		Build()
}

// IsTransient reports whether err is a network-level failure worth retrying:
// timeouts, connection resets, DNS failures, proxy connect failures, 429 and 5xx.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "proxyconnect" {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
