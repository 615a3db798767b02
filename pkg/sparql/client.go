// Package sparql queries a Wikibase SPARQL endpoint (WDQS) and resolves
// result entities into wikibase.Entity values.
package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wbgo/pkg/cache"
	"wbgo/pkg/tracker"
	"wbgo/pkg/version"
)

const defaultTimeout = 60 * time.Second

// Client runs SELECT queries against a SPARQL endpoint.
type Client struct {
	httpClient *http.Client
	cache      cache.Cacher
	tracker    *tracker.Tracker
	provider   string

	Endpoint  string
	UserAgent string
	Logger    *slog.Logger
}

// New creates a client for the given endpoint URL.
func New(endpoint string, c cache.Cacher, t *tracker.Tracker, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	provider := "sparql"
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		provider = u.Host
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		cache:      c,
		tracker:    t,
		provider:   provider,
		Endpoint:   endpoint,
		UserAgent:  fmt.Sprintf("wbgo/%s golang", version.Version),
		Logger:     logger,
	}
}

// Value is one RDF term of a result row.
type Value struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Binding maps variable names to terms for one result row.
type Binding map[string]Value

// Result is a parsed SPARQL SELECT response.
type Result struct {
	Vars     []string
	Bindings []Binding
}

// EntityIDs extracts entity ids from the named variable of every row,
// accepting bare ids and full entity URIs.
func (r *Result) EntityIDs(name string) []string {
	var ids []string
	for _, b := range r.Bindings {
		v, ok := b[name]
		if !ok || v.Value == "" {
			continue
		}
		id := v.Value
		if i := strings.LastIndex(id, "/"); i >= 0 {
			id = id[i+1:]
		}
		ids = append(ids, id)
	}
	return ids
}

// Query runs a SELECT query. A non-empty cacheKey serves repeated queries
// from the response cache.
func (c *Client) Query(ctx context.Context, query, cacheKey string) (*Result, error) {
	if cacheKey != "" {
		if body, hit := c.cache.GetCache(ctx, cacheKey); hit {
			c.tracker.TrackCacheHit(c.provider)
			c.Logger.Debug("Cache Hit", "provider", c.provider, "key", cacheKey)
			return parse(body)
		}
		c.tracker.TrackCacheMiss(c.provider)
		c.Logger.Debug("Cache Miss", "provider", c.provider, "key", cacheKey)
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Add("query", query)
	q.Add("format", "json")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		c.tracker.TrackAPIFailure(c.provider)
		return nil, err
	}
	c.tracker.TrackAPISuccess(c.provider)

	result, err := parse(body)
	if err != nil {
		return nil, err
	}
	if cacheKey != "" {
		if err := c.cache.SetCache(ctx, cacheKey, body); err != nil {
			c.Logger.Error("Failed to cache response", "key", cacheKey, "error", err)
		}
	}
	return result, nil
}

// get fetches the URL with exponential backoff on retryable errors.
// Unlike the action API client, WDQS reads give up after a few attempts.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	const maxAttempts = 3
	baseDelay := 500 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/sparql-results+json")
		req.Header.Set("User-Agent", c.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.Logger.Warn("SPARQL request failed, retrying", "attempt", attempt+1, "error", err)
			if err := sleep(ctx, baseDelay<<attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := baseDelay << attempt
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
			resp.Body.Close()
			c.Logger.Warn("SPARQL backoff", "status", resp.StatusCode, "attempt", attempt+1)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("sparql error: status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded")
}

func parse(body []byte) (*Result, error) {
	var envelope struct {
		Head struct {
			Vars []string `json:"vars"`
		} `json:"head"`
		Results struct {
			Bindings []Binding `json:"bindings"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode sparql json: %w", err)
	}
	return &Result{Vars: envelope.Head.Vars, Bindings: envelope.Results.Bindings}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
