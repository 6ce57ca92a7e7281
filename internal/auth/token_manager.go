package auth

import (
	"fmt"
	"sync"

	"github.com/waabox/authdeck/internal/config"
	"github.com/waabox/authdeck/internal/domain"
)

// TokenManager owns the stored tokens: it writes successful login results
// into the config file and clears them again on logout.
type TokenManager struct {
	cfg        *config.Config
	configPath string
	mu         sync.Mutex
}

// NewTokenManager creates a TokenManager. Pass an empty configPath to keep
// tokens in memory only (used by tests).
func NewTokenManager(cfg *config.Config, configPath string) *TokenManager {
	return &TokenManager{cfg: cfg, configPath: configPath}
}

// Store records the token for the provider and persists the config.
// The token stays usable in memory even if persisting fails; the returned
// error tells the caller re-authentication will be needed next run.
func (tm *TokenManager) Store(provider domain.Provider, result domain.TokenResult) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if provider.IsDotCom() {
		tm.cfg.GitHub.Token = result.AccessToken
		tm.cfg.GitHub.Scopes = result.Scopes.String()
	} else {
		tm.cfg.Enterprise.URL = provider.BaseURL
		tm.cfg.Enterprise.Token = result.AccessToken
		tm.cfg.Enterprise.Scopes = result.Scopes.String()
	}

	if tm.configPath == "" {
		return nil
	}
	if err := config.Save(tm.configPath, *tm.cfg); err != nil {
		return fmt.Errorf("token stored in memory but failed to save config: %w", err)
	}
	return nil
}

// Token returns the stored token for the provider, or "" when signed out.
func (tm *TokenManager) Token(provider domain.Provider) string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if provider.IsDotCom() {
		return tm.cfg.GitHub.Token
	}
	return tm.cfg.Enterprise.Token
}

// Clear removes the stored token for the provider and persists the config.
func (tm *TokenManager) Clear(provider domain.Provider) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if provider.IsDotCom() {
		tm.cfg.GitHub.Token = ""
		tm.cfg.GitHub.Scopes = ""
	} else {
		tm.cfg.Enterprise.Token = ""
		tm.cfg.Enterprise.Scopes = ""
	}

	if tm.configPath == "" {
		return nil
	}
	if err := config.Save(tm.configPath, *tm.cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

// Config returns the current config pointer.
func (tm *TokenManager) Config() *config.Config {
	return tm.cfg
}
