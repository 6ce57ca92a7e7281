package auth

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waabox/authdeck/internal/domain"
)

// interactiveTimeout bounds every strategy that waits on the user finishing
// something in a browser.
const interactiveTimeout = 5 * time.Minute

// CallbackURI is the application URI scheme an external handler redirects
// back to after browser authorization.
const CallbackURI = "authdeck://did-authenticate"

// BrowserStrategy opens the provider's authorize page in a browser and waits
// for an external URI handler to deliver the redirect into the tracker. It
// is only available when the platform actually routes authdeck:// URIs back
// to us.
type BrowserStrategy struct {
	provider       domain.Provider
	clientID       string
	tracker        *PendingTracker
	exchanger      *Exchanger
	prompter       Prompter
	handlerPresent bool
	log            *zap.Logger
}

// NewBrowserStrategy creates a BrowserStrategy. handlerPresent reports
// whether an external authdeck:// URI handler is registered on this system.
func NewBrowserStrategy(provider domain.Provider, clientID string, tracker *PendingTracker, exchanger *Exchanger, prompter Prompter, handlerPresent bool, log *zap.Logger) *BrowserStrategy {
	if log == nil {
		log = zap.NewNop()
	}
	return &BrowserStrategy{
		provider:       provider,
		clientID:       clientID,
		tracker:        tracker,
		exchanger:      exchanger,
		prompter:       prompter,
		handlerPresent: handlerPresent,
		log:            log,
	}
}

func (s *BrowserStrategy) Name() string { return "browser sign-in" }

func (s *BrowserStrategy) Available(_ context.Context) bool { return s.handlerPresent }

// Login registers a nonce, sends the user to the authorize page, and races
// the callback against the interactive timeout and cancellation. Whichever
// loses the race is cleaned up through the deferred Clear.
func (s *BrowserStrategy) Login(ctx context.Context, scopes domain.ScopeSet) (domain.TokenResult, error) {
	nonce := uuid.NewString()
	s.tracker.Register(scopes, nonce)
	defer s.tracker.Clear(scopes)
	wait := s.tracker.Wait(scopes)

	if err := s.prompter.OpenURL(authorizeURL(s.provider, s.clientID, scopes, nonce, CallbackURI)); err != nil {
		return domain.TokenResult{}, err
	}

	timer := time.NewTimer(interactiveTimeout)
	defer timer.Stop()

	select {
	case cb := <-wait:
		s.log.Debug("browser callback accepted", zap.String("nonce", cb.Nonce))
		return s.exchanger.Exchange(ctx, cb.Code, CallbackURI)
	case <-timer.C:
		return domain.TokenResult{}, domain.ErrTimeout
	case <-ctx.Done():
		return domain.TokenResult{}, mapContextErr(ctx.Err())
	}
}

func authorizeURL(p domain.Provider, clientID string, scopes domain.ScopeSet, state, redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("scope", scopes.String())
	q.Set("state", state)
	q.Set("redirect_uri", redirectURI)
	return p.AuthorizeURL() + "?" + q.Encode()
}
