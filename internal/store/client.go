// Package store is the only component that talks to the external
// datastore. Tables are read in bulk through its REST-style query surface;
// nothing here owns transactions, migrations or schema.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrTableUnavailable marks an optional table that could not be read.
// Callers degrade the dependent feature instead of failing the batch.
var ErrTableUnavailable = errors.New("table unavailable")

// DefaultTimeout bounds one query round trip.
const DefaultTimeout = 15 * time.Second

// maxRetryElapsed bounds the total retry budget for one query.
const maxRetryElapsed = 30 * time.Second

// Client reads rows from the datastore's REST query interface.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a store client for the given base URL and API key.
func NewClient(baseURL, key string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Named("store"),
	}
}

// Query fetches rows from one table. Params are raw query expressions in
// the store's dialect, e.g. "select=user_id,username" or
// "order=current_score.desc". Missing tables return ErrTableUnavailable;
// transient failures are retried with exponential backoff.
func (c *Client) Query(ctx context.Context, table string, params ...string) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, url.PathEscape(table))
	if len(params) > 0 {
		endpoint += "?" + strings.Join(params, "&")
	}

	var rows []map[string]any
	operation := func() error {
		body, err := c.fetch(ctx, endpoint)
		if err != nil {
			return err
		}
		if err := sonic.Unmarshal(body, &rows); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding %s response: %w", table, err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxRetryElapsed),
	), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, ErrTableUnavailable) {
			c.logger.Warn("Table unavailable", zap.String("table", table))
			return nil, fmt.Errorf("%w: %s", ErrTableUnavailable, table)
		}
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}

	c.logger.Debug("Fetched table",
		zap.String("table", table),
		zap.Int("rows", len(rows)))

	return rows, nil
}

// Update applies a partial update to every row matching the filter
// params. The body is a JSON object of column assignments in the store's
// dialect. Missing tables return ErrTableUnavailable; transient failures
// are retried like queries.
func (c *Client) Update(ctx context.Context, table, body string, params ...string) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, url.PathEscape(table))
	if len(params) > 0 {
		endpoint += "?" + strings.Join(params, "&")
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, strings.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=minimal")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNoContent:
			return nil
		case resp.StatusCode == http.StatusNotFound,
			resp.StatusCode == http.StatusBadRequest,
			resp.StatusCode == http.StatusUnauthorized,
			resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w: status %d", ErrTableUnavailable, resp.StatusCode))
		default:
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxRetryElapsed),
	), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, ErrTableUnavailable) {
			c.logger.Warn("Table unavailable", zap.String("table", table))
			return fmt.Errorf("%w: %s", ErrTableUnavailable, table)
		}
		return fmt.Errorf("updating %s: %w", table, err)
	}

	c.logger.Debug("Updated table", zap.String("table", table))
	return nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		// Schema or credential problems do not heal on retry.
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrTableUnavailable, resp.StatusCode))
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
