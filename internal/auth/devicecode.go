package auth

import (
	"context"
	"time"

	"github.com/waabox/authdeck/internal/domain"
	"github.com/waabox/authdeck/internal/githubapi"
)

// VersionProber reports a provider instance's installed version. Satisfied
// by githubapi.Client.
type VersionProber interface {
	Meta(ctx context.Context) (githubapi.Meta, error)
}

// DeviceCodeStrategy adapts DeviceFlow to the strategy chain: request a
// grant, show the user code, poll until something terminal happens.
type DeviceCodeStrategy struct {
	provider domain.Provider
	flow     *DeviceFlow
	prompter Prompter
	prober   VersionProber
}

// NewDeviceCodeStrategy creates a DeviceCodeStrategy. prober is consulted
// only for enterprise providers; pass the instance's API client.
func NewDeviceCodeStrategy(provider domain.Provider, flow *DeviceFlow, prompter Prompter, prober VersionProber) *DeviceCodeStrategy {
	return &DeviceCodeStrategy{provider: provider, flow: flow, prompter: prompter, prober: prober}
}

func (s *DeviceCodeStrategy) Name() string { return "device code sign-in" }

// Available is always true on github.com. On GHES the instance must report a
// version that ships the device authorization grant (3.1.0 or later); an
// unreachable meta endpoint disables the strategy rather than failing login.
func (s *DeviceCodeStrategy) Available(ctx context.Context) bool {
	if s.provider.IsDotCom() {
		return true
	}
	if s.prober == nil {
		return false
	}
	meta, err := s.prober.Meta(ctx)
	if err != nil {
		return false
	}
	return domain.SupportsDeviceFlow(meta.InstalledVersion)
}

func (s *DeviceCodeStrategy) Login(ctx context.Context, scopes domain.ScopeSet) (domain.TokenResult, error) {
	grant, err := s.flow.RequestGrant(ctx, scopes)
	if err != nil {
		return domain.TokenResult{}, err
	}
	s.prompter.ShowDeviceCode(grant)

	pollCtx := ctx
	if grant.ExpiresIn > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, time.Duration(grant.ExpiresIn)*time.Second)
		defer cancel()
	}
	token, err := s.flow.PollToken(pollCtx, grant)
	if err != nil {
		return domain.TokenResult{}, err
	}
	return domain.TokenResult{AccessToken: token, Scopes: scopes}, nil
}
