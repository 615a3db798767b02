// Package mwapi is a MediaWiki action API client: form-encoded POSTs with
// the parameter conventions of the Wikibase modules, token and session
// management, and the retry discipline Wikimedia API etiquette asks for
// (maxlag, Retry-After).
package mwapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"wbgo/pkg/config"
	"wbgo/pkg/logging"
	"wbgo/pkg/tracker"
	"wbgo/pkg/version"
)

const (
	defaultTimeout    = 20 * time.Second
	defaultMaxLag     = 5
	defaultRetryDelay = 60 * time.Second
)

// Client talks to the action API of a single MediaWiki/Wikibase host.
// It implements wikibase.Caller.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker

	// Endpoint is the full api.php URL, overridable for tests.
	Endpoint   string
	UserAgent  string
	MaxLag     int // <= 0 disables the maxlag parameter
	RetryDelay time.Duration
	Logger     *slog.Logger

	// Tokens caches action API tokens by kind for this session.
	Tokens *TokenWallet

	host string
	user string
	bot  bool
}

// New creates a client for https://<host>/w/api.php with a cookie jar for
// login sessions and default request tuning.
func New(host string, t *tracker.Tracker, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
		tracker:    t,
		Endpoint:   fmt.Sprintf("https://%s/w/api.php", host),
		UserAgent:  fmt.Sprintf("wbgo/%s golang", version.Version),
		MaxLag:     defaultMaxLag,
		RetryDelay: defaultRetryDelay,
		Logger:     logger,
		host:       host,
	}
	c.Tokens = newTokenWallet(c)
	return c
}

// FromConfig builds a client for the given host (empty = the configured
// default site), applying request tuning and credentials. OAuth
// credentials win over a configured bot password; the password flow needs
// a network round-trip and stays with the caller (Login).
func FromConfig(cfg *config.Config, host string, t *tracker.Tracker, logger *slog.Logger) *Client {
	if host == "" {
		host = cfg.DefaultSite
	}
	c := New(host, t, logger)
	if cfg.Contact != "" {
		c.UserAgent = fmt.Sprintf("wbgo/%s (%s) golang", version.Version, cfg.Contact)
	}
	if d := time.Duration(cfg.Request.Timeout); d > 0 {
		c.httpClient.Timeout = d
	}
	if d := time.Duration(cfg.Request.RetryDelay); d > 0 {
		c.RetryDelay = d
	}
	site := cfg.Site(host)
	c.bot = site.Bot
	if site.MaxLag != nil {
		c.MaxLag = *site.MaxLag
	}
	if site.OAuth.ConsumerKey != "" {
		c.UseOAuth(site.OAuth, site.User)
	}
	return c
}

// Site implements wikibase.Caller.
func (c *Client) Site() string { return c.host }

// Bot reports whether edits should carry the bot flag.
func (c *Client) Bot() bool { return c.bot }

// User returns the asserted username, empty while anonymous.
func (c *Client) User() string { return c.user }

// Call POSTs an action API request and returns the raw response body.
//
// Defaults added to every request: format=json, formatversion=2,
// errorformat=plaintext, maxlag (when configured > 0), and an assert
// matching the session state (anon, or user/bot plus assertuser).
// Parameter values encode as: string verbatim, int via Itoa, bool true as
// "1" and false omitted, nil omitted, []string joined with U+001F (and
// prefixed with it, so single values survive embedded pipes).
func (c *Client) Call(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	form := url.Values{}
	form.Set("action", action)
	form.Set("format", "json")
	form.Set("formatversion", "2")
	form.Set("errorformat", "plaintext")
	if c.MaxLag > 0 {
		form.Set("maxlag", strconv.Itoa(c.MaxLag))
	}
	if c.user != "" {
		if c.bot {
			form.Set("assert", "bot")
		} else {
			form.Set("assert", "user")
		}
		form.Set("assertuser", c.user)
	} else {
		form.Set("assert", "anon")
	}
	for key, value := range params {
		encoded, ok, err := encodeParam(value)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", key, err)
		}
		if !ok {
			continue
		}
		form.Set(key, encoded)
	}
	return c.post(ctx, form)
}

func encodeParam(value any) (string, bool, error) {
	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case bool:
		if v {
			return "1", true, nil
		}
		return "", false, nil
	case int:
		return strconv.Itoa(v), true, nil
	case []string:
		return "\x1f" + strings.Join(v, "\x1f"), true, nil
	default:
		return "", false, fmt.Errorf("unsupported parameter type %T", value)
	}
}

// post sends the form and retries until it gets a definitive answer.
// Server errors and connection failures sleep RetryDelay, timeouts retry
// immediately, a Retry-After header (maxlag backpressure) is honored to
// the second. Only context cancellation breaks the loop early.
func (c *Client) post(ctx context.Context, form url.Values) (json.RawMessage, error) {
	logger := c.Logger.With("request_id", uuid.NewString())
	action := form.Get("action")

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", c.UserAgent)

		logger.Debug("API Request", "action", action, "attempt", attempt)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.tracker.TrackRetry(c.host)
			if isTimeout(err) {
				logger.Warn("API request timed out, retrying", "action", action, "attempt", attempt)
				continue
			}
			logger.Warn("API connection failed, retrying", "action", action, "attempt", attempt, "error", err)
			if err := sleep(ctx, c.RetryDelay); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			delay := c.RetryDelay
			if ra, ok := retryAfter(resp); ok {
				delay = ra
			}
			logger.Warn("API server error, retrying", "action", action, "status", resp.StatusCode, "attempt", attempt)
			c.tracker.TrackRetry(c.host)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode >= 400 {
			c.tracker.TrackAPIFailure(c.host)
			return nil, fmt.Errorf("api error: status %d", resp.StatusCode)
		}
		if readErr != nil {
			logger.Warn("API response read failed, retrying", "action", action, "attempt", attempt, "error", readErr)
			c.tracker.TrackRetry(c.host)
			if err := sleep(ctx, c.RetryDelay); err != nil {
				return nil, err
			}
			continue
		}

		logging.Trace(logger, "API Response", "action", action, "status", resp.StatusCode, "body", string(body))

		// Replication lag backpressure arrives as a 200 with Retry-After.
		if ra, ok := retryAfter(resp); ok {
			logger.Warn("API backpressure, waiting", "action", action, "seconds", ra.Seconds())
			c.tracker.TrackRetry(c.host)
			if err := sleep(ctx, ra); err != nil {
				return nil, err
			}
			continue
		}

		c.logWarnings(logger, body)

		if code := resp.Header.Get("MediaWiki-API-Error"); code != "" {
			c.tracker.TrackAPIFailure(c.host)
			apiErr := parseAPIError(body, code)
			logger.Warn("API Error", "action", action, "error", apiErr.Error())
			return nil, apiErr
		}

		c.tracker.TrackAPISuccess(c.host)
		return json.RawMessage(body), nil
	}
}

func (c *Client) logWarnings(logger *slog.Logger, body []byte) {
	var envelope struct {
		Warnings []APIMessage `json:"warnings"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return
	}
	for _, w := range envelope.Warnings {
		logger.Warn("API Warning", "module", w.Module, "text", w.Text)
	}
}

// retryAfter reads the Retry-After header. MediaWiki sends seconds, never
// the HTTP-date form.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
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
