package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/waabox/authdeck/internal/auth"
	"github.com/waabox/authdeck/internal/domain"
)

// testProvider points every endpoint at the given test server.
func testProvider(serverURL string) domain.Provider {
	return domain.Provider{Name: "test", BaseURL: serverURL, APIBase: serverURL + "/api/v3"}
}

func TestDeviceFlow_RequestGrant_ReturnsUserCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login/device/code" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("scope"); got != "repo workflow" {
			t.Errorf("expected scope 'repo workflow', got '%s'", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"device_code":      "dev_abc",
			"user_code":        "ABCD-1234",
			"verification_uri": "https://github.com/login/device",
			"expires_in":       900,
			"interval":         5,
		})
	}))
	defer server.Close()

	flow := auth.NewDeviceFlow(testProvider(server.URL), "test_client_id", nil)
	grant, err := flow.RequestGrant(context.Background(), domain.ParseScopes("repo workflow"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grant.UserCode != "ABCD-1234" {
		t.Errorf("user code: want 'ABCD-1234', got '%s'", grant.UserCode)
	}
	if grant.DeviceCode != "dev_abc" {
		t.Errorf("device code: want 'dev_abc', got '%s'", grant.DeviceCode)
	}
	if grant.Interval != 5 {
		t.Errorf("interval: want 5, got %d", grant.Interval)
	}
}

func TestDeviceFlow_PollToken_ReturnsTokenOnSuccess(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.Header().Set("Content-Type", "application/json")
		if callCount < 3 {
			json.NewEncoder(w).Encode(map[string]string{"error": "authorization_pending"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_real_token"})
	}))
	defer server.Close()

	flow := auth.NewDeviceFlow(testProvider(server.URL), "test_client_id", nil)
	// Interval 0 disables the sleep delay in tests.
	token, err := flow.PollToken(context.Background(), auth.DeviceCodeGrant{DeviceCode: "dev_abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "gho_real_token" {
		t.Errorf("token: want 'gho_real_token', got '%s'", token)
	}
}

func TestDeviceFlow_PollToken_AlwaysPending_StopsAfterBudget(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"error": "authorization_pending"})
	}))
	defer server.Close()

	flow := auth.NewDeviceFlow(testProvider(server.URL), "test_client_id", nil)
	_, err := flow.PollToken(context.Background(), auth.DeviceCodeGrant{DeviceCode: "dev_abc"})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	// Budget is 120s at the default 5s interval: exactly 24 attempts.
	if callCount != 24 {
		t.Errorf("expected exactly 24 poll attempts, got %d", callCount)
	}
}

func TestDeviceFlow_PollToken_TransientNetworkErrorIsRetried(t *testing.T) {
	callCount := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		if callCount == 1 {
			// Kill the connection without a response to simulate a
			// transport failure.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("response writer does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatal(err)
			}
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_after_blip"})
	}))
	defer server.Close()

	flow := auth.NewDeviceFlow(testProvider(server.URL), "test_client_id", nil)
	token, err := flow.PollToken(context.Background(), auth.DeviceCodeGrant{DeviceCode: "dev_abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "gho_after_blip" {
		t.Errorf("token: want 'gho_after_blip', got '%s'", token)
	}
	if callCount != 2 {
		t.Errorf("expected 2 poll calls, got %d", callCount)
	}
}

func TestDeviceFlow_PollToken_DeniedSurfacesProviderDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "access_denied",
			"error_description": "The user declined the request",
		})
	}))
	defer server.Close()

	flow := auth.NewDeviceFlow(testProvider(server.URL), "test_client_id", nil)
	_, err := flow.PollToken(context.Background(), auth.DeviceCodeGrant{DeviceCode: "dev_abc"})
	var rejected *domain.ProviderRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ProviderRejectedError, got %v", err)
	}
	if rejected.Description != "The user declined the request" {
		t.Errorf("unexpected description: %q", rejected.Description)
	}
}

func TestDeviceFlow_PollToken_ExpiredTokenReportsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"error": "expired_token"})
	}))
	defer server.Close()

	flow := auth.NewDeviceFlow(testProvider(server.URL), "test_client_id", nil)
	_, err := flow.PollToken(context.Background(), auth.DeviceCodeGrant{DeviceCode: "dev_abc"})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("expected ErrTimeout for expired device code, got %v", err)
	}
}

func TestDeviceFlow_PollToken_SlowDownIncreasesInterval(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.Header().Set("Content-Type", "application/json")
		if callCount == 1 {
			json.NewEncoder(w).Encode(map[string]string{"error": "slow_down"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_after_slowdown"})
	}))
	defer server.Close()

	flow := auth.NewDeviceFlow(testProvider(server.URL), "test_client_id", nil)
	token, err := flow.PollToken(context.Background(), auth.DeviceCodeGrant{DeviceCode: "dev_abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "gho_after_slowdown" {
		t.Errorf("token: want 'gho_after_slowdown', got '%s'", token)
	}
}

func TestDeviceFlow_PollToken_CancelledContextHaltsWithinOneTick(t *testing.T) {
	callCount := 0
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		// Cancel mid-poll: no further attempts may follow this one.
		cancel()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"error": "authorization_pending"})
	}))
	defer server.Close()

	flow := auth.NewDeviceFlow(testProvider(server.URL), "test_client_id", nil)
	_, err := flow.PollToken(ctx, auth.DeviceCodeGrant{DeviceCode: "dev_abc"})
	if !errors.Is(err, domain.ErrUserCancelled) {
		t.Fatalf("expected ErrUserCancelled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected polling to halt after the cancelling tick, got %d calls", callCount)
	}
}

func TestDeviceFlow_RequestGrant_ErrorPayloadRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized_client"})
	}))
	defer server.Close()

	flow := auth.NewDeviceFlow(testProvider(server.URL), "bad_client", nil)
	_, err := flow.RequestGrant(context.Background(), domain.ParseScopes("repo"))
	var rejected *domain.ProviderRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ProviderRejectedError, got %v", err)
	}
	if !strings.Contains(rejected.Description, "unauthorized_client") {
		t.Errorf("unexpected description: %q", rejected.Description)
	}
}
