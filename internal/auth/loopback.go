package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/waabox/authdeck/internal/domain"
)

// loopbackGrace keeps the listener alive for a short window after the race
// settles so an in-flight browser redirect can still land instead of hitting
// a connection error.
const loopbackGrace = 5 * time.Second

// LoopbackStrategy runs a one-shot HTTP listener on an ephemeral local port
// and directs the provider's redirect at it. It works anywhere a browser can
// reach 127.0.0.1, with no platform URI handler needed.
type LoopbackStrategy struct {
	provider  domain.Provider
	clientID  string
	tracker   *PendingTracker
	exchanger *Exchanger
	prompter  Prompter
	log       *zap.Logger
}

// NewLoopbackStrategy creates a LoopbackStrategy.
func NewLoopbackStrategy(provider domain.Provider, clientID string, tracker *PendingTracker, exchanger *Exchanger, prompter Prompter, log *zap.Logger) *LoopbackStrategy {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoopbackStrategy{
		provider:  provider,
		clientID:  clientID,
		tracker:   tracker,
		exchanger: exchanger,
		prompter:  prompter,
		log:       log,
	}
}

func (s *LoopbackStrategy) Name() string { return "local server sign-in" }

func (s *LoopbackStrategy) Available(_ context.Context) bool { return true }

// Login binds a listener, opens the authorize page with the listener as the
// redirect target, and races the redirect against the interactive timeout
// and cancellation. The listener outlives the race by loopbackGrace.
func (s *LoopbackStrategy) Login(ctx context.Context, scopes domain.ScopeSet) (domain.TokenResult, error) {
	nonce := uuid.NewString()
	s.tracker.Register(scopes, nonce)
	defer s.tracker.Clear(scopes)
	wait := s.tracker.Wait(scopes)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return domain.TokenResult{}, fmt.Errorf("binding loopback listener: %w", err)
	}
	redirectURI := fmt.Sprintf("http://%s/callback", ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		cb := Callback{Code: q.Get("code"), State: q.Get("state"), Nonce: q.Get("state")}
		if s.tracker.Deliver(scopes, cb) {
			fmt.Fprintln(w, "Signed in. You can close this tab and return to the terminal.")
			return
		}
		// Stale or foreign redirect: tolerated, never an error.
		fmt.Fprintln(w, "This authorization request is no longer pending.")
	})
	srv := &http.Server{Handler: mux}

	g := new(errgroup.Group)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	defer s.teardown(srv, g)

	s.log.Debug("loopback listener bound", zap.String("redirect_uri", redirectURI))
	if err := s.prompter.OpenURL(authorizeURL(s.provider, s.clientID, scopes, nonce, redirectURI)); err != nil {
		return domain.TokenResult{}, err
	}

	timer := time.NewTimer(interactiveTimeout)
	defer timer.Stop()

	select {
	case cb := <-wait:
		return s.exchanger.Exchange(ctx, cb.Code, redirectURI)
	case <-timer.C:
		return domain.TokenResult{}, domain.ErrTimeout
	case <-ctx.Done():
		return domain.TokenResult{}, mapContextErr(ctx.Err())
	}
}

// teardown closes the server after the grace period without blocking the
// caller, then drains the serve goroutine.
func (s *LoopbackStrategy) teardown(srv *http.Server, g *errgroup.Group) {
	go func() {
		time.Sleep(loopbackGrace)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if err := g.Wait(); err != nil {
			s.log.Debug("loopback listener error", zap.Error(err))
		}
	}()
}
