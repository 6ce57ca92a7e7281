package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/waabox/authdeck/internal/domain"
)

// Strategy is one concrete way of completing authentication. Implementations
// must fail distinguishably between user cancellation (domain.ErrUserCancelled)
// and technical failure, because the chain's fallback behavior depends on it.
type Strategy interface {
	// Name identifies the strategy in errors and logs.
	Name() string
	// Available reports whether the strategy can run against the chain's
	// provider (e.g. device flow requires a new enough GHES instance).
	Available(ctx context.Context) bool
	// Login attempts authentication for the requested scopes.
	Login(ctx context.Context, scopes domain.ScopeSet) (domain.TokenResult, error)
}

// Chain attempts strategies in a fixed priority order, short-circuiting on
// the first success. In interactive mode a failed strategy is followed by a
// confirmation prompt before the next one runs; non-interactive chains fall
// back silently.
type Chain struct {
	strategies  []Strategy
	prompter    Prompter
	interactive bool
	log         *zap.Logger
}

// NewChain creates a Chain over the given strategies in attempt order.
// prompter may be nil only when interactive is false.
func NewChain(strategies []Strategy, prompter Prompter, interactive bool, log *zap.Logger) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{
		strategies:  strategies,
		prompter:    prompter,
		interactive: interactive,
		log:         log,
	}
}

// Login runs the chain for the requested scopes. The terminal failure is a
// single aggregated NoStrategyError unless the last recorded state was a
// user cancellation, in which case ErrUserCancelled is reported instead.
func (c *Chain) Login(ctx context.Context, scopes domain.ScopeSet) (domain.TokenResult, error) {
	var causes []error
	lastWasCancel := false
	attempted := 0

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return domain.TokenResult{}, mapContextErr(err)
		}
		if !s.Available(ctx) {
			c.log.Debug("strategy unavailable", zap.String("strategy", s.Name()))
			continue
		}

		if attempted > 0 && c.interactive {
			ok, err := c.prompter.Confirm(ctx, fallbackPrompt(s.Name(), lastWasCancel))
			if err != nil {
				return domain.TokenResult{}, mapContextErr(err)
			}
			if !ok {
				return domain.TokenResult{}, domain.ErrUserCancelled
			}
		}
		attempted++

		c.log.Debug("attempting strategy", zap.String("strategy", s.Name()))
		token, err := s.Login(ctx, scopes)
		if err == nil {
			return token, nil
		}

		lastWasCancel = errors.Is(err, domain.ErrUserCancelled)
		causes = append(causes, fmt.Errorf("%s: %w", s.Name(), err))
		c.log.Debug("strategy failed",
			zap.String("strategy", s.Name()),
			zap.Bool("cancelled", lastWasCancel),
			zap.Error(err))
	}

	if lastWasCancel {
		return domain.TokenResult{}, domain.ErrUserCancelled
	}
	return domain.TokenResult{}, &domain.NoStrategyError{Causes: causes}
}

func fallbackPrompt(next string, lastWasCancel bool) string {
	if lastWasCancel {
		return fmt.Sprintf("You have not finished authorizing. Try again using %s?", next)
	}
	return fmt.Sprintf("That sign-in method did not work. Try %s instead?", next)
}

// mapContextErr translates context termination into the login error
// taxonomy: an explicit cancel is the user backing out, a deadline is a
// timed-out attempt.
func mapContextErr(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return domain.ErrUserCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrTimeout
	}
	return err
}
