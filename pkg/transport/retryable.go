package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// New builds the default Doer: a retrying HTTP client that backs off on
// connection failures and retryable statuses. Request bodies are buffered by
// the underlying client so POSTs replay safely.
func New(cfg Config) Doer {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	if rc.RetryMax == 0 {
		rc.RetryMax = 3
	}
	rc.HTTPClient.Timeout = cfg.RequestTimeout
	if rc.HTTPClient.Timeout == 0 {
		rc.HTTPClient.Timeout = 60 * time.Second
	}
	if cfg.Logger != nil {
		rc.Logger = slogAdapter{logger: cfg.Logger}
	} else {
		rc.Logger = nil
	}
	return rc.StandardClient()
}

// slogAdapter bridges retryablehttp's leveled logger onto slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Error(msg string, keysAndValues ...any) {
	a.logger.Log(context.Background(), slog.LevelError, msg, keysAndValues...)
}

func (a slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

func (a slogAdapter) Debug(msg string, keysAndValues ...any) {
	a.logger.Log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

func (a slogAdapter) Warn(msg string, keysAndValues ...any) {
	a.logger.Log(context.Background(), slog.LevelWarn, msg, keysAndValues...)
}

// Verify interface compliance.
var _ retryablehttp.LeveledLogger = slogAdapter{}
