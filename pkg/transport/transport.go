// Package transport provides the HTTP boundary the query pipeline calls
// through. The pipeline itself never retries; transient-failure retry,
// pooling and TLS all live behind the Doer seam.
package transport

import (
	"log/slog"
	"net/http"
	"time"
)

// Doer executes one HTTP request. *http.Client satisfies it, as does the
// retrying client returned by New. Tests substitute their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config tunes the default transport.
type Config struct {
	// RetryMax is the number of retries for transient failures
	// (connection errors, 429s, 5xx). Defaults to 3.
	RetryMax int

	// RequestTimeout bounds a single attempt. Defaults to 60s.
	RequestTimeout time.Duration

	// Logger receives retry-level debug logs. Nil disables them.
	Logger *slog.Logger
}

// Verify interface compliance.
var _ Doer = (*http.Client)(nil)
