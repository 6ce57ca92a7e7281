package domain

import (
	"sort"
	"strings"
)

// ScopeSet is an ordered, deduplicated set of OAuth scopes. Two requests for
// the same scopes always produce the same Key, which is what the pending
// request tracker uses to correlate overlapping attempts.
type ScopeSet struct {
	scopes []string
}

// ParseScopes builds a ScopeSet from a comma- or space-separated list.
// Empty entries and duplicates are dropped; order of input does not matter.
func ParseScopes(raw string) ScopeSet {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' '
	})
	seen := make(map[string]struct{}, len(fields))
	var scopes []string
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		scopes = append(scopes, f)
	}
	sort.Strings(scopes)
	return ScopeSet{scopes: scopes}
}

// NewScopeSet builds a ScopeSet from individual scope names.
func NewScopeSet(scopes ...string) ScopeSet {
	return ParseScopes(strings.Join(scopes, " "))
}

// Key returns the canonical identity of the set, suitable as a map key.
func (s ScopeSet) Key() string {
	return strings.Join(s.scopes, " ")
}

// String returns the set in the space-separated form GitHub expects in the
// scope request parameter.
func (s ScopeSet) String() string { return s.Key() }

// IsEmpty reports whether the set holds no scopes.
func (s ScopeSet) IsEmpty() bool { return len(s.scopes) == 0 }

// List returns a copy of the scopes in canonical order.
func (s ScopeSet) List() []string {
	out := make([]string, len(s.scopes))
	copy(out, s.scopes)
	return out
}

// Contains reports whether every scope in other is present in s.
func (s ScopeSet) Contains(other ScopeSet) bool {
	have := make(map[string]struct{}, len(s.scopes))
	for _, sc := range s.scopes {
		have[sc] = struct{}{}
	}
	for _, sc := range other.scopes {
		if _, ok := have[sc]; !ok {
			return false
		}
	}
	return true
}
