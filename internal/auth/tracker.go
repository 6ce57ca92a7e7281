package auth

import (
	"net/url"
	"sync"

	"github.com/waabox/authdeck/internal/domain"
)

// Callback is the payload an authorization redirect delivers back to the
// application: the authorization code plus the nonce that correlates it with
// the attempt that started it.
type Callback struct {
	Code  string
	State string
	Nonce string
}

// PendingTracker associates in-flight authorization attempts with their
// nonces, keyed by scope-set identity. Overlapping attempts for different
// scope sets are independent; overlapping attempts for the same scope set
// share one rendezvous and the first accepted callback wins.
//
// A callback whose nonce was never registered is silently ignored rather
// than treated as an error: the user may have restarted the flow before the
// first attempt completed, and the stale redirect still lands.
type PendingTracker struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
}

type pendingEntry struct {
	nonces map[string]struct{}
	done   chan Callback // buffered; receives the single accepted callback
}

// NewPendingTracker creates an empty tracker.
func NewPendingTracker() *PendingTracker {
	return &PendingTracker{entries: make(map[string]*pendingEntry)}
}

// Register records a new outstanding nonce for the given scope set.
func (t *PendingTracker) Register(scopes domain.ScopeSet, nonce string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(scopes).nonces[nonce] = struct{}{}
}

// IsAccepted reports whether the nonce is currently outstanding for the
// scope set, i.e. whether a callback carrying it would be honored.
func (t *PendingTracker) IsAccepted(scopes domain.ScopeSet, nonce string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[scopes.Key()]
	if !ok {
		return false
	}
	_, ok = e.nonces[nonce]
	return ok
}

// Wait returns the channel that receives the accepted callback for the scope
// set. The channel resolves at most once per registered attempt.
func (t *PendingTracker) Wait(scopes domain.ScopeSet) <-chan Callback {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entry(scopes).done
}

// Deliver hands an incoming callback to the attempt that registered its
// nonce. It reports whether the callback was accepted; an unregistered nonce
// is ignored and leaves every pending attempt untouched. An accepted
// delivery clears the pending entry, so each nonce resolves at most once.
func (t *PendingTracker) Deliver(scopes domain.ScopeSet, cb Callback) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[scopes.Key()]
	if !ok {
		return false
	}
	if _, ok := e.nonces[cb.Nonce]; !ok {
		return false
	}
	delete(t.entries, scopes.Key())
	e.done <- cb
	return true
}

// DeliverURI parses an external callback URI of the form
// authdeck://did-authenticate?code=...&state=...&nonce=... and delivers it to
// whichever scope set registered the nonce. Malformed URIs and unknown
// nonces are ignored.
func (t *PendingTracker) DeliverURI(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	q := u.Query()
	cb := Callback{Code: q.Get("code"), State: q.Get("state"), Nonce: q.Get("nonce")}
	if cb.Nonce == "" {
		cb.Nonce = cb.State
	}
	if cb.Nonce == "" || cb.Code == "" {
		return false
	}

	t.mu.Lock()
	var key string
	var e *pendingEntry
	for k, entry := range t.entries {
		if _, ok := entry.nonces[cb.Nonce]; ok {
			key, e = k, entry
			break
		}
	}
	if e == nil {
		t.mu.Unlock()
		return false
	}
	delete(t.entries, key)
	t.mu.Unlock()

	e.done <- cb
	return true
}

// Clear drops every outstanding nonce for the scope set. Attempts that lose
// the completion race call this so stale redirects cannot resolve them later.
func (t *PendingTracker) Clear(scopes domain.ScopeSet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, scopes.Key())
}

// entry returns the pendingEntry for scopes, creating it if needed.
// Callers must hold t.mu.
func (t *PendingTracker) entry(scopes domain.ScopeSet) *pendingEntry {
	key := scopes.Key()
	e, ok := t.entries[key]
	if !ok {
		// Capacity 1 so Deliver never blocks even if the waiter already
		// gave up.
		e = &pendingEntry{nonces: make(map[string]struct{}), done: make(chan Callback, 1)}
		t.entries[key] = e
	}
	return e
}
