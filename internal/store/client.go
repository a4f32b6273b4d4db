// Package store implements the HTTP client for the hosted row store.
// Rows come back as opaque documents; all schema tolerance lives in the
// snapshot normalization layer, not here.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/procurex/map-insight/internal/core/observability"
)

// Row is one raw record from the store.
type Row map[string]any

// Querier is the narrow query surface the aggregation core consumes.
type Querier interface {
	// QueryLatest returns up to limit rows from table where filterColumn
	// equals filterValue, newest first by orderBy.
	QueryLatest(ctx context.Context, table, filterColumn, filterValue, orderBy string, limit int) ([]Row, error)
}

// DataSourceError marks the store as unreachable or its response as malformed
// beyond recovery. The HTTP boundary maps it to a generic 500.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
}

func New(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("store url must be absolute")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: u, apiKey: apiKey, http: httpClient}, nil
}

var _ Querier = (*Client)(nil)

func (c *Client) QueryLatest(ctx context.Context, table, filterColumn, filterValue, orderBy string, limit int) ([]Row, error) {
	if table == "" {
		return nil, &DataSourceError{Op: "query", Err: errors.New("empty table")}
	}
	if limit <= 0 {
		limit = 1
	}

	u := *c.base
	u.Path = u.Path + "/" + url.PathEscape(table)
	q := url.Values{}
	if filterColumn != "" {
		q.Set(filterColumn, "eq."+filterValue)
	}
	if orderBy != "" {
		q.Set("order", orderBy+".desc")
	}
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &DataSourceError{Op: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.ObserveUpstreamLatency("store", time.Since(start).Seconds())
	if err != nil {
		return nil, &DataSourceError{Op: "query " + table, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &DataSourceError{
			Op:  "query " + table,
			Err: fmt.Errorf("status=%d body=%q", resp.StatusCode, strings.TrimSpace(string(b))),
		}
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, &DataSourceError{Op: "decode " + table, Err: err}
	}
	return rows, nil
}
