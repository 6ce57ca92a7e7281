// Package githubapi is a minimal client for the authenticated GitHub REST
// endpoints authdeck needs: identifying the token holder and probing a GHES
// instance's version.
package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/waabox/authdeck/internal/domain"
)

// Client talks to a provider's REST API.
type Client struct {
	provider domain.Provider
	client   *http.Client
	log      *zap.Logger
}

// NewClient creates a Client for the given provider.
func NewClient(provider domain.Provider, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		provider: provider,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

// User describes the authenticated account behind a token.
type User struct {
	Login string `json:"login"`
	// GrantedScopes is parsed from the X-OAuth-Scopes response header, not
	// the JSON body. Empty for fine-grained tokens, which do not report it.
	GrantedScopes domain.ScopeSet `json:"-"`
}

// Meta is the subset of the /meta response authdeck cares about.
type Meta struct {
	InstalledVersion string `json:"installed_version"`
}

// User fetches the account the token belongs to. A 401 response maps to
// domain.ErrUnauthorized so callers can distinguish a dead token from a
// transport failure.
func (c *Client) User(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.provider.UserURL(), nil)
	if err != nil {
		return User{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return User{}, &domain.NetworkError{Op: "fetching user", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return User{}, fmt.Errorf("github API: %w", domain.ErrUnauthorized)
	}
	if resp.StatusCode >= 400 {
		return User{}, fmt.Errorf("github API error: %s", resp.Status)
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return User{}, fmt.Errorf("decoding user response: %w", err)
	}
	u.GrantedScopes = domain.ParseScopes(resp.Header.Get("X-OAuth-Scopes"))
	c.log.Debug("fetched authenticated user",
		zap.String("login", u.Login),
		zap.String("scopes", u.GrantedScopes.String()))
	return u, nil
}

// Meta probes the instance metadata endpoint. Used to decide whether a GHES
// instance is new enough for the device authorization grant.
func (c *Client) Meta(ctx context.Context) (Meta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.provider.MetaURL(), nil)
	if err != nil {
		return Meta{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Meta{}, &domain.NetworkError{Op: "probing version", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Meta{}, fmt.Errorf("github API error: %s", resp.Status)
	}
	var m Meta
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Meta{}, fmt.Errorf("decoding meta response: %w", err)
	}
	c.log.Debug("probed instance version", zap.String("version", m.InstalledVersion))
	return m, nil
}
