package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waabox/authdeck/internal/domain"
)

const (
	// pollBudgetSeconds caps the total time spent polling the token
	// endpoint regardless of how long the device code itself lives.
	pollBudgetSeconds = 120
	// defaultPollInterval is assumed when the provider does not specify
	// one, and is what the attempt budget is computed from in test mode.
	defaultPollInterval = 5
)

// DeviceFlow implements the OAuth 2.0 Device Authorization Grant against a
// GitHub-like provider. A polling attempt moves through
// Requested -> Polling -> {Succeeded, Denied, Expired, Cancelled}.
// See https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps#device-flow
type DeviceFlow struct {
	provider domain.Provider
	clientID string
	client   *http.Client
	log      *zap.Logger
}

// NewDeviceFlow creates a DeviceFlow for the given provider.
func NewDeviceFlow(provider domain.Provider, clientID string, log *zap.Logger) *DeviceFlow {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeviceFlow{
		provider: provider,
		clientID: clientID,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

// RequestGrant requests a device code and user code from the provider.
// The returned grant's UserCode must be shown to the user along with its
// VerificationURI before polling can succeed.
func (f *DeviceFlow) RequestGrant(ctx context.Context, scopes domain.ScopeSet) (DeviceCodeGrant, error) {
	data := url.Values{}
	data.Set("client_id", f.clientID)
	data.Set("scope", scopes.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.provider.DeviceCodeURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return DeviceCodeGrant{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return DeviceCodeGrant{}, &domain.NetworkError{Op: "requesting device code", Err: err}
	}
	defer resp.Body.Close()

	var raw struct {
		DeviceCode       string `json:"device_code"`
		UserCode         string `json:"user_code"`
		VerificationURI  string `json:"verification_uri"`
		ExpiresIn        int    `json:"expires_in"`
		Interval         int    `json:"interval"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return DeviceCodeGrant{}, fmt.Errorf("decoding device code response: %w", err)
	}
	if raw.Error != "" {
		return DeviceCodeGrant{}, &domain.ProviderRejectedError{Description: errorText(raw.Error, raw.ErrorDescription)}
	}
	if raw.DeviceCode == "" {
		return DeviceCodeGrant{}, fmt.Errorf("provider returned no device code (HTTP %d)", resp.StatusCode)
	}
	f.log.Debug("device code issued",
		zap.String("user_code", raw.UserCode),
		zap.Int("interval", raw.Interval),
		zap.Int("expires_in", raw.ExpiresIn))
	return DeviceCodeGrant{
		DeviceCode:      raw.DeviceCode,
		UserCode:        raw.UserCode,
		VerificationURI: raw.VerificationURI,
		ExpiresIn:       raw.ExpiresIn,
		Interval:        raw.Interval,
	}, nil
}

// PollToken polls the token endpoint at the grant's interval until the user
// authorizes, the provider denies, the attempt budget runs out, or ctx is
// cancelled. Transient network failures are swallowed and retried at the
// next tick with no backoff change. interval 0 skips the sleep delay (test
// mode) while keeping the default attempt budget.
func (f *DeviceFlow) PollToken(ctx context.Context, grant DeviceCodeGrant) (string, error) {
	interval := grant.Interval
	if interval < 0 {
		interval = 0
	}
	budgetInterval := interval
	if budgetInterval <= 0 {
		budgetInterval = defaultPollInterval
	}
	maxAttempts := pollBudgetSeconds / budgetInterval

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if interval > 0 {
			select {
			case <-time.After(time.Duration(interval) * time.Second):
			case <-ctx.Done():
				return "", mapContextErr(ctx.Err())
			}
		} else {
			select {
			case <-ctx.Done():
				return "", mapContextErr(ctx.Err())
			default:
			}
		}

		token, err := f.pollOnce(ctx, grant.DeviceCode, &interval)
		if err != nil {
			return "", err
		}
		if token != "" {
			return token, nil
		}
		// Still pending, take the next tick.
	}

	f.log.Debug("device flow poll budget exhausted", zap.Int("attempts", maxAttempts))
	return "", domain.ErrTimeout
}

// pollOnce performs a single token poll. It returns a non-empty token on
// success, empty token and nil error for pending/transient outcomes, or a
// terminal error. interval is a pointer so a slow_down response can stretch
// later ticks.
func (f *DeviceFlow) pollOnce(ctx context.Context, deviceCode string, interval *int) (string, error) {
	data := url.Values{}
	data.Set("client_id", f.clientID)
	data.Set("device_code", deviceCode)
	data.Set("grant_type", "urn:ietf:params:oauth:grant-type:device_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.provider.TokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", mapContextErr(ctx.Err())
		}
		// Transient transport failure: retry at the next tick.
		f.log.Debug("token poll failed, retrying", zap.Error(err))
		return "", nil
	}

	var raw struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&raw)
	resp.Body.Close()
	if decodeErr != nil {
		f.log.Debug("token poll returned undecodable body, retrying", zap.Error(decodeErr))
		return "", nil
	}

	switch raw.Error {
	case "":
		return raw.AccessToken, nil
	case "authorization_pending":
		return "", nil
	case "slow_down":
		*interval += 5
		return "", nil
	case "expired_token":
		return "", fmt.Errorf("device code expired: %w", domain.ErrTimeout)
	default:
		return "", &domain.ProviderRejectedError{Description: errorText(raw.Error, raw.ErrorDescription)}
	}
}

func errorText(code, description string) string {
	if description != "" {
		return description
	}
	return code
}
