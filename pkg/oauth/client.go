// Package oauth exchanges authorization codes with the OAuth authority.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"agent-chat-go/internal/config"
	"agent-chat-go/pkg/log"
)

// Identity is the user record returned by the authority.
type Identity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type resourceRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthCode     string `json:"auth_code"`
	State        string `json:"state"`
	GrantType    string `json:"grant_type"`
}

type resourceResponse struct {
	User *Identity `json:"user"`
}

// Client talks to the authority's resource endpoint.
type Client struct {
	cfg        config.OAuthConfig
	httpClient *http.Client
}

// NewClient builds a Client. cfg.Timeout bounds each verification call.
func NewClient(cfg config.OAuthConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Verify exchanges code and state for the user's identity in a single call.
// It reports false on any failure (missing service credentials, transport
// error, non-200 status, malformed body, identity without email); the cause
// is logged and never returned.
func (c *Client) Verify(ctx context.Context, code, state string) (*Identity, bool) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		log.Warnf("oauth: client credentials are not configured")
		return nil, false
	}

	body, err := json.Marshal(resourceRequest{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		AuthCode:     code,
		State:        state,
		GrantType:    "authorization_code",
	})
	if err != nil {
		log.Error("oauth: failed to marshal request", err)
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, bytes.NewReader(body))
	if err != nil {
		log.Error("oauth: failed to create request", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("oauth: verification request failed", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warnw("oauth: authority rejected code", "status", resp.StatusCode, "body", string(snippet))
		return nil, false
	}

	var out resourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Error("oauth: malformed response", err)
		return nil, false
	}
	if out.User == nil || strings.TrimSpace(out.User.Email) == "" {
		log.Warnf("oauth: response carries no user email")
		return nil, false
	}

	identity := *out.User
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	return &identity, true
}
