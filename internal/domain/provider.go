package domain

import "strings"

const (
	dotComBaseURL = "https://github.com"
	dotComAPIBase = "https://api.github.com"
)

// Provider describes a GitHub-like identity service: where its OAuth
// endpoints live and where its REST API lives. A Provider is a plain value;
// construct one with DotCom or Enterprise.
type Provider struct {
	Name    string
	BaseURL string
	APIBase string
}

// DotCom returns the provider for github.com.
func DotCom() Provider {
	return Provider{Name: "github.com", BaseURL: dotComBaseURL, APIBase: dotComAPIBase}
}

// Enterprise returns a provider for a GitHub Enterprise Server instance.
// baseURL is the instance root, e.g. https://ghe.example.com. The REST API
// of a GHES instance is served under /api/v3.
func Enterprise(baseURL string) Provider {
	trimmed := strings.TrimSuffix(baseURL, "/")
	return Provider{
		Name:    hostOf(trimmed),
		BaseURL: trimmed,
		APIBase: trimmed + "/api/v3",
	}
}

// IsDotCom reports whether this provider is the default github.com instance.
// Enterprise-specific exchange parameters are only sent when this is false.
// Identity is carried by Name rather than BaseURL so tests can point the
// endpoints at a local server.
func (p Provider) IsDotCom() bool {
	return p.Name == "github.com"
}

// DeviceCodeURL returns the device authorization endpoint.
func (p Provider) DeviceCodeURL() string {
	return p.BaseURL + "/login/device/code"
}

// TokenURL returns the token exchange endpoint.
func (p Provider) TokenURL() string {
	return p.BaseURL + "/login/oauth/access_token"
}

// AuthorizeURL returns the browser authorization endpoint.
func (p Provider) AuthorizeURL() string {
	return p.BaseURL + "/login/oauth/authorize"
}

// UserURL returns the authenticated user endpoint on the REST API.
func (p Provider) UserURL() string {
	return p.APIBase + "/user"
}

// MetaURL returns the instance metadata endpoint used for version probing.
func (p Provider) MetaURL() string {
	return p.APIBase + "/meta"
}

func hostOf(baseURL string) string {
	s := strings.TrimPrefix(baseURL, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

// TokenResult is the terminal artifact of a successful login strategy.
type TokenResult struct {
	AccessToken string
	Scopes      ScopeSet
}
