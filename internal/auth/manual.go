package auth

import (
	"context"
	"fmt"

	"github.com/waabox/authdeck/internal/domain"
	"github.com/waabox/authdeck/internal/githubapi"
)

// TokenValidator checks that a token works and reports its granted scopes.
// Satisfied by githubapi.Client.
type TokenValidator interface {
	User(ctx context.Context, token string) (githubapi.User, error)
}

// ManualStrategy is the last resort: the user pastes a personal access token
// they created themselves, and we validate it against the provider.
type ManualStrategy struct {
	provider  domain.Provider
	prompter  Prompter
	validator TokenValidator
}

// NewManualStrategy creates a ManualStrategy.
func NewManualStrategy(provider domain.Provider, prompter Prompter, validator TokenValidator) *ManualStrategy {
	return &ManualStrategy{provider: provider, prompter: prompter, validator: validator}
}

func (s *ManualStrategy) Name() string { return "personal access token" }

func (s *ManualStrategy) Available(_ context.Context) bool { return true }

func (s *ManualStrategy) Login(ctx context.Context, scopes domain.ScopeSet) (domain.TokenResult, error) {
	msg := fmt.Sprintf("Paste a personal access token for %s with scopes [%s]", s.provider.Name, scopes)
	token, err := s.prompter.Input(ctx, msg)
	if err != nil {
		return domain.TokenResult{}, err
	}
	if token == "" {
		return domain.TokenResult{}, domain.ErrUserCancelled
	}

	user, err := s.validator.User(ctx, token)
	if err != nil {
		return domain.TokenResult{}, fmt.Errorf("validating token: %w", err)
	}
	// Classic tokens report their scopes in a header; fine-grained tokens
	// report nothing and are accepted as-is.
	if !user.GrantedScopes.IsEmpty() && !user.GrantedScopes.Contains(scopes) {
		return domain.TokenResult{}, fmt.Errorf("token for %s is missing requested scopes: have [%s], want [%s]",
			user.Login, user.GrantedScopes, scopes)
	}

	granted := user.GrantedScopes
	if granted.IsEmpty() {
		granted = scopes
	}
	return domain.TokenResult{AccessToken: token, Scopes: granted}, nil
}
