package mwapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// TokenWallet memoizes action API tokens by kind ("csrf", "login", ...).
// The first request for a kind fetches it via meta=tokens; later requests
// are served from the cache. There is no expiry: a stale token surfaces
// as an ordinary API error on use.
type TokenWallet struct {
	client *Client

	mu     sync.Mutex
	tokens map[string]string
}

func newTokenWallet(c *Client) *TokenWallet {
	return &TokenWallet{client: c, tokens: make(map[string]string)}
}

// Get returns the token of the given kind, fetching it on first use.
// Every token in the response is cached, not just the requested kind.
func (w *TokenWallet) Get(ctx context.Context, kind string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := kind + "token"
	if token, ok := w.tokens[name]; ok {
		return token, nil
	}

	raw, err := w.client.Call(ctx, "query", map[string]any{
		"meta": "tokens",
		"type": kind,
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s token: %w", kind, err)
	}

	var envelope struct {
		Query struct {
			Tokens map[string]string `json:"tokens"`
		} `json:"query"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	for key, token := range envelope.Query.Tokens {
		w.tokens[key] = token
	}

	token, ok := w.tokens[name]
	if !ok {
		return "", fmt.Errorf("no %s token in response", kind)
	}
	return token, nil
}

// reset drops all cached tokens. Called when the session identity changes.
func (w *TokenWallet) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.tokens)
}

// CSRFToken implements wikibase.Caller.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	return c.Tokens.Get(ctx, "csrf")
}
