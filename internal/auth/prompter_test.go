package auth_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/waabox/authdeck/internal/auth"
	"github.com/waabox/authdeck/internal/domain"
)

func TestTerminalPrompter_ConfirmAnswers(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
		{"maybe\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := auth.NewTerminalPrompter(strings.NewReader(tt.input), &out)
		got, err := p.Confirm(context.Background(), "Try the next sign-in method?")
		if err != nil {
			t.Fatalf("input %q: unexpected error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("input %q: expected %v, got %v", tt.input, tt.want, got)
		}
		if !strings.Contains(out.String(), "[y/N]") {
			t.Errorf("input %q: prompt missing [y/N] hint: %s", tt.input, out.String())
		}
	}
}

func TestTerminalPrompter_InputTrimsWhitespace(t *testing.T) {
	var out bytes.Buffer
	p := auth.NewTerminalPrompter(strings.NewReader("  ghp_pasted \n"), &out)
	got, err := p.Input(context.Background(), "Paste a token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ghp_pasted" {
		t.Errorf("expected 'ghp_pasted', got '%s'", got)
	}
}

func TestTerminalPrompter_CancelledContextUnblocks(t *testing.T) {
	// A reader that never produces a line: the blocked read must not hold
	// up cancellation.
	blocked, w := newBlockedReader()
	defer w.close()
	var out bytes.Buffer
	p := auth.NewTerminalPrompter(blocked, &out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Input(ctx, "Paste a token")
	if !errors.Is(err, domain.ErrUserCancelled) {
		t.Fatalf("expected ErrUserCancelled, got %v", err)
	}
}

func TestTerminalPrompter_ShowDeviceCode(t *testing.T) {
	var out bytes.Buffer
	p := auth.NewTerminalPrompter(strings.NewReader(""), &out)
	p.ShowDeviceCode(auth.DeviceCodeGrant{
		UserCode:        "WDJB-MJHT",
		VerificationURI: "https://github.com/login/device",
	})
	if !strings.Contains(out.String(), "WDJB-MJHT") {
		t.Errorf("expected the user code in output, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "https://github.com/login/device") {
		t.Errorf("expected the verification URI in output, got: %s", out.String())
	}
}

type blockedWriter struct{ ch chan struct{} }

func (b blockedWriter) close() { close(b.ch) }

type blockedReader struct{ ch chan struct{} }

func (b blockedReader) Read(_ []byte) (int, error) {
	<-b.ch
	return 0, errors.New("closed")
}

func newBlockedReader() (blockedReader, blockedWriter) {
	ch := make(chan struct{})
	return blockedReader{ch: ch}, blockedWriter{ch: ch}
}
