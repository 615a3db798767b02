package mwapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dghubble/oauth1"

	"wbgo/pkg/config"
)

// Login performs the bot-password login flow (login token, then
// action=login) and binds the session to the username the server reports.
// Later calls assert that identity.
func (c *Client) Login(ctx context.Context, user, password string) error {
	token, err := c.Tokens.Get(ctx, "login")
	if err != nil {
		return fmt.Errorf("failed to fetch login token: %w", err)
	}

	raw, err := c.Call(ctx, "login", map[string]any{
		"lgname":     user,
		"lgpassword": password,
		"lgtoken":    token,
	})
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}

	var envelope struct {
		Login struct {
			Result   string          `json:"result"`
			UserName string          `json:"lgusername"`
			Reason   json.RawMessage `json:"reason"`
		} `json:"login"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if envelope.Login.Result != "Success" {
		c.Logger.Warn("Login rejected", "site", c.host, "result", envelope.Login.Result, "reason", string(envelope.Login.Reason))
		return fmt.Errorf("%w: %s", ErrLoginFailed, envelope.Login.Result)
	}

	c.user = envelope.Login.UserName
	// Tokens issued to the anonymous session are worthless now.
	c.Tokens.reset()
	c.Logger.Info("Logged in", "site", c.host, "user", c.user)
	return nil
}

// UseOAuth signs every request with owner-only OAuth1 credentials and
// asserts the given username on later calls. The underlying transport is
// replaced; timeout and cookie jar carry over.
func (c *Client) UseOAuth(creds config.OAuthConfig, user string) {
	oauthConfig := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)

	timeout := c.httpClient.Timeout
	jar := c.httpClient.Jar
	c.httpClient = oauthConfig.Client(oauth1.NoContext, token)
	c.httpClient.Timeout = timeout
	c.httpClient.Jar = jar

	c.user = user
	c.Tokens.reset()
}
