// Package client executes parameterized SQL statements against the
// service's HTTP statement endpoint and materializes typed results.
//
// A Client is an immutable identity plus a transport. Statements are built
// with Prepare and Bind, executed with Query, and read through the ResultSet
// views:
//
//	rs, err := c.Prepare("SELECT name FROM users WHERE id = ?").Bind(10).Query(ctx)
//	if err != nil { ... }
//	rows, err := rs.Cells(ctx)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/txn2/snowquery/pkg/keypair"
	"github.com/txn2/snowquery/pkg/transport"
	"github.com/txn2/snowquery/pkg/wire"
)

const (
	userAgent     = "snowquery/0.1.0"
	statementPath = "/api/v2/statements"

	// maxResponseBody caps how much of a response is read, protecting
	// against a misbehaving endpoint. Partition sizes stay well under this.
	maxResponseBody = 512 << 20
)

// Client is a connection-less handle to one service identity. It is safe
// for concurrent use; the only shared mutable state is the token cache
// inside the signer.
type Client struct {
	database  string
	warehouse string
	role      string
	host      string
	signer    *keypair.Signer
	doer      transport.Doer
	log       *slog.Logger
}

// New validates the configuration and builds a client. The private key is
// loaded from PrivateKeyPath unless PrivateKey is set.
func New(cfg Config) (*Client, error) {
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}
	if cfg.Warehouse == "" {
		return nil, fmt.Errorf("warehouse is required")
	}

	key := cfg.PrivateKey
	if key == nil {
		if cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("a private key or private key path is required")
		}
		var err error
		key, err = keypair.LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
	}

	signer, err := keypair.NewSigner(key, cfg.Account, cfg.User)
	if err != nil {
		return nil, err
	}

	host := cfg.Host
	if host == "" {
		host = fmt.Sprintf("https://%s.snowflakecomputing.com", strings.ToLower(cfg.Account))
	} else if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	doer := cfg.Transport
	if doer == nil {
		doer = transport.New(transport.Config{
			RetryMax:       cfg.RetryMax,
			RequestTimeout: cfg.RequestTimeout,
			Logger:         cfg.Logger,
		})
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		database:  strings.ToUpper(cfg.Database),
		warehouse: strings.ToUpper(cfg.Warehouse),
		role:      strings.ToUpper(cfg.Role),
		host:      strings.TrimSuffix(host, "/"),
		signer:    signer,
		doer:      doer,
		log:       logger,
	}, nil
}

// do issues one signed request and decodes the JSON response body into out.
// A 401 triggers exactly one token refresh and retry; every other outcome is
// terminal here, with retry policy left to the transport.
func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	status, respBody, err := c.doOnce(ctx, method, url, body)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		c.log.DebugContext(ctx, "token rejected, refreshing and retrying once")
		c.signer.Invalidate()
		status, respBody, err = c.doOnce(ctx, method, url, body)
		if err != nil {
			return err
		}
	}
	if status < 200 || status > 299 {
		statusErr := &StatusError{Status: status, Body: string(respBody)}
		var wireErr wire.ErrorResponse
		if json.Unmarshal(respBody, &wireErr) == nil {
			statusErr.Code = wireErr.Code
			statusErr.Message = wireErr.Message
		}
		return statusErr
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("malformed response (status %d, body %q): %w",
			status, truncate(string(respBody), 256), err)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	token, err := c.signer.Token(ctx)
	if err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Snowflake-Authorization-Token-Type", "KEYPAIR_JWT")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
