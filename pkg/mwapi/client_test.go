package mwapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"wbgo/pkg/tracker"
)

// newTestClient points a client at a httptest server.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *tracker.Tracker) {
	t.Helper()
	svr := httptest.NewServer(handler)
	t.Cleanup(svr.Close)

	tr := tracker.New()
	c := New("test.wikidata.org", tr, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	c.Endpoint = svr.URL
	c.RetryDelay = 10 * time.Millisecond
	return c, tr
}

func TestCallDefaults(t *testing.T) {
	var form url.Values
	var userAgent string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		form = r.PostForm
		userAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"batchcomplete":true}`))
	})

	_, err := c.Call(context.Background(), "query", map[string]any{"meta": "siteinfo"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	expected := map[string]string{
		"action":        "query",
		"format":        "json",
		"formatversion": "2",
		"errorformat":   "plaintext",
		"maxlag":        "5",
		"assert":        "anon",
		"meta":          "siteinfo",
	}
	for key, want := range expected {
		if got := form.Get(key); got != want {
			t.Errorf("param %s = %q, want %q", key, got, want)
		}
	}
	if !strings.HasPrefix(userAgent, "wbgo/") {
		t.Errorf("User-Agent = %q, want wbgo/ prefix", userAgent)
	}
}

func TestCallParamEncoding(t *testing.T) {
	var form url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = r.PostForm
		w.Write([]byte(`{}`))
	})

	_, err := c.Call(context.Background(), "wbgetentities", map[string]any{
		"ids":      []string{"Q1", "Q42"},
		"redirect": true,
		"trimmed":  false,
		"limit":    50,
		"skipped":  nil,
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if got := form.Get("ids"); got != "\x1fQ1\x1fQ42" {
		t.Errorf("ids = %q, want unit-separator join with leading separator", got)
	}
	if got := form.Get("redirect"); got != "1" {
		t.Errorf("redirect = %q, want \"1\"", got)
	}
	if _, ok := form["trimmed"]; ok {
		t.Error("false parameter must be omitted")
	}
	if _, ok := form["skipped"]; ok {
		t.Error("nil parameter must be omitted")
	}
	if got := form.Get("limit"); got != "50" {
		t.Errorf("limit = %q, want \"50\"", got)
	}
}

func TestCallRejectsUnsupportedParamType(t *testing.T) {
	requests := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{}`))
	})

	_, err := c.Call(context.Background(), "query", map[string]any{"bad": 1.5})
	if err == nil {
		t.Fatal("expected error for float parameter")
	}
	if requests != 0 {
		t.Errorf("no request should be sent, got %d", requests)
	}
}

func TestCallMaxLagDisabled(t *testing.T) {
	var form url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = r.PostForm
		w.Write([]byte(`{}`))
	})
	c.MaxLag = 0

	if _, err := c.Call(context.Background(), "query", nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if _, ok := form["maxlag"]; ok {
		t.Error("maxlag must be omitted when disabled")
	}
}

func TestCallAssertsSessionIdentity(t *testing.T) {
	tests := []struct {
		name       string
		user       string
		bot        bool
		wantAssert string
		wantUser   string
	}{
		{"Anonymous", "", false, "anon", ""},
		{"User", "Alice", false, "user", "Alice"},
		{"Bot", "AliceBot", true, "bot", "AliceBot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var form url.Values
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				r.ParseForm()
				form = r.PostForm
				w.Write([]byte(`{}`))
			})
			c.user = tt.user
			c.bot = tt.bot

			if _, err := c.Call(context.Background(), "query", nil); err != nil {
				t.Fatalf("Call failed: %v", err)
			}
			if got := form.Get("assert"); got != tt.wantAssert {
				t.Errorf("assert = %q, want %q", got, tt.wantAssert)
			}
			if got := form.Get("assertuser"); got != tt.wantUser {
				t.Errorf("assertuser = %q, want %q", got, tt.wantUser)
			}
		})
	}
}

func TestCallAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("MediaWiki-API-Error", "no-such-entity")
		w.Write([]byte(`{"errors":[{"code":"no-such-entity","text":"Could not find an entity with the ID \"Q0\".","module":"wbgetentities"},{"code":"badid","text":"Malformed ID","module":"wbgetentities"}]}`))
	})

	_, err := c.Call(context.Background(), "wbgetentities", map[string]any{"ids": "Q0"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if len(apiErr.Errors) != 2 {
		t.Fatalf("expected 2 error entries, got %d", len(apiErr.Errors))
	}
	if apiErr.Errors[0].Code != "no-such-entity" {
		t.Errorf("first code = %q", apiErr.Errors[0].Code)
	}
	want := `no-such-entity: Could not find an entity with the ID "Q0". / badid: Malformed ID`
	if apiErr.Error() != want {
		t.Errorf("Error() = %q, want %q", apiErr.Error(), want)
	}
}

func TestCallAPIErrorHeaderOnly(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("MediaWiki-API-Error", "ratelimited")
		w.Write([]byte(`not even json`))
	})

	_, err := c.Call(context.Background(), "wbeditentity", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Errors[0].Code != "ratelimited" {
		t.Errorf("fallback code = %q, want header code", apiErr.Errors[0].Code)
	}
}

func TestCallHonorsRetryAfter(t *testing.T) {
	var requests int32
	c, tr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.Write([]byte(`{"errors":[{"code":"maxlag","text":"Waiting for replication","module":"main"}]}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})

	raw, err := c.Call(context.Background(), "query", nil)
	if err != nil {
		t.Fatalf("expected success after backpressure, got %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("unexpected body %s", raw)
	}
	if requests != 2 {
		t.Errorf("expected 2 requests, got %d", requests)
	}
	if got := tr.Snapshot()["test.wikidata.org"].Retries; got != 1 {
		t.Errorf("expected 1 tracked retry, got %d", got)
	}
}

func TestCallRetriesServerErrors(t *testing.T) {
	var requests int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})

	if _, err := c.Call(context.Background(), "query", nil); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if requests != 3 {
		t.Errorf("expected 3 requests, got %d", requests)
	}
}

func TestCallClientErrorIsFatal(t *testing.T) {
	var requests int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Call(context.Background(), "query", nil)
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if requests != 1 {
		t.Errorf("4xx must not be retried, got %d requests", requests)
	}
}

func TestCallCancelledDuringBackoff(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c.RetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Call(ctx, "query", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %v, backoff sleep is not context-aware", elapsed)
	}
}

func TestCallLogsWarnings(t *testing.T) {
	var logs bytes.Buffer
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"warnings":[{"code":"deprecation","text":"The parameter is deprecated.","module":"wbeditentity"}],"success":1}`))
	}))
	defer svr.Close()

	c := New("test.wikidata.org", tracker.New(), slog.New(slog.NewTextHandler(&logs, nil)))
	c.Endpoint = svr.URL

	if _, err := c.Call(context.Background(), "wbeditentity", nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !strings.Contains(logs.String(), "API Warning") || !strings.Contains(logs.String(), "wbeditentity") {
		t.Errorf("warning not logged, got: %s", logs.String())
	}
}

func TestTokensFetchedOnceThenCached(t *testing.T) {
	var tokenRequests int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("meta") == "tokens" {
			atomic.AddInt32(&tokenRequests, 1)
			w.Write([]byte(`{"batchcomplete":true,"query":{"tokens":{"csrftoken":"abc123+\\"}}}`))
			return
		}
		w.Write([]byte(`{}`))
	})

	for i := 0; i < 3; i++ {
		token, err := c.CSRFToken(context.Background())
		if err != nil {
			t.Fatalf("CSRFToken failed: %v", err)
		}
		if token != `abc123+\` {
			t.Errorf("token = %q", token)
		}
	}
	if tokenRequests != 1 {
		t.Errorf("expected a single token fetch, got %d", tokenRequests)
	}
}

func TestLogin(t *testing.T) {
	var loginForm url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.PostForm.Get("action") {
		case "query":
			w.Write([]byte(`{"batchcomplete":true,"query":{"tokens":{"logintoken":"lt+\\"}}}`))
		case "login":
			loginForm = r.PostForm
			w.Write([]byte(`{"login":{"result":"Success","lgusername":"Alice"}}`))
		default:
			w.Write([]byte(`{}`))
		}
	})

	err := c.Login(context.Background(), "Alice@wbgo", "botpassword")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got := loginForm.Get("lgtoken"); got != `lt+\` {
		t.Errorf("lgtoken = %q", got)
	}
	if c.User() != "Alice" {
		t.Errorf("User() = %q, want server-reported username", c.User())
	}
}

func TestLoginFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("action") == "login" {
			w.Write([]byte(`{"login":{"result":"Failed","reason":{"code":"wrongpassword","text":"Incorrect password."}}}`))
			return
		}
		w.Write([]byte(`{"batchcomplete":true,"query":{"tokens":{"logintoken":"lt+\\"}}}`))
	})

	err := c.Login(context.Background(), "Alice@wbgo", "wrong")
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if c.User() != "" {
		t.Errorf("failed login must not bind a user, got %q", c.User())
	}
}

func TestLoginInvalidatesAnonymousTokens(t *testing.T) {
	csrf := "anon-token"
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch {
		case r.PostForm.Get("type") == "csrf":
			w.Write([]byte(`{"query":{"tokens":{"csrftoken":"` + csrf + `"}}}`))
		case r.PostForm.Get("type") == "login":
			w.Write([]byte(`{"query":{"tokens":{"logintoken":"lt+\\"}}}`))
		case r.PostForm.Get("action") == "login":
			csrf = "session-token"
			w.Write([]byte(`{"login":{"result":"Success","lgusername":"Alice"}}`))
		default:
			w.Write([]byte(`{}`))
		}
	})

	before, err := c.CSRFToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Login(context.Background(), "Alice@wbgo", "pw"); err != nil {
		t.Fatal(err)
	}
	after, err := c.CSRFToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Error("login must drop tokens issued to the anonymous session")
	}
}
