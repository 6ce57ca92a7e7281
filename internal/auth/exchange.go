package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waabox/authdeck/internal/domain"
)

// TokenExchangeError is returned when the token endpoint answers with a
// non-success status. The response body is surfaced verbatim so the
// provider's own explanation reaches the user.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("token exchange failed with HTTP %d", e.StatusCode)
}

// Exchanger trades an authorization code for an access token at the
// provider's token endpoint.
type Exchanger struct {
	provider domain.Provider
	clientID string
	client   *http.Client
	log      *zap.Logger
}

// NewExchanger creates an Exchanger for the given provider.
func NewExchanger(provider domain.Provider, clientID string, log *zap.Logger) *Exchanger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exchanger{
		provider: provider,
		clientID: clientID,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

// Exchange trades the authorization code for a token. redirectURI must match
// the redirect the code was issued against. Enterprise-specific parameters
// are appended only when targeting a non-default provider instance.
func (e *Exchanger) Exchange(ctx context.Context, code, redirectURI string) (domain.TokenResult, error) {
	data := url.Values{}
	data.Set("client_id", e.clientID)
	data.Set("code", code)
	if !e.provider.IsDotCom() {
		data.Set("issuer", e.provider.BaseURL)
		if redirectURI != "" {
			data.Set("redirect_uri", redirectURI)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.provider.TokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return domain.TokenResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.TokenResult{}, &domain.NetworkError{Op: "exchanging code", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TokenResult{}, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.TokenResult{}, &TokenExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var raw struct {
		AccessToken      string `json:"access_token"`
		Scope            string `json:"scope"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.TokenResult{}, fmt.Errorf("decoding token response: %w", err)
	}
	if raw.Error != "" {
		return domain.TokenResult{}, &domain.ProviderRejectedError{Description: errorText(raw.Error, raw.ErrorDescription)}
	}
	if raw.AccessToken == "" {
		return domain.TokenResult{}, fmt.Errorf("provider returned no access token")
	}

	e.log.Debug("exchanged authorization code", zap.String("scope", raw.Scope))
	return domain.TokenResult{
		AccessToken: raw.AccessToken,
		Scopes:      domain.ParseScopes(raw.Scope),
	}, nil
}
