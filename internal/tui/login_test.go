package tui_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/waabox/authdeck/internal/auth"
	"github.com/waabox/authdeck/internal/domain"
	"github.com/waabox/authdeck/internal/tui"
)

func TestLogin_DeviceCodeMsg_ShowsUserCode(t *testing.T) {
	m := tui.NewLoginModel("github.com", domain.ParseScopes("repo"))

	updated, _ := m.Update(tui.DeviceCodeShownMsg{Grant: auth.DeviceCodeGrant{
		UserCode:        "WDJB-MJHT",
		VerificationURI: "https://github.com/login/device",
	}})
	view := updated.(tui.LoginModel).View()

	if !strings.Contains(view, "WDJB-MJHT") {
		t.Errorf("expected user code in view, got:\n%s", view)
	}
	if !strings.Contains(view, "https://github.com/login/device") {
		t.Errorf("expected verification URI in view, got:\n%s", view)
	}
}

func TestLogin_ConfirmRequest_YKey_RepliesTrue(t *testing.T) {
	m := tui.NewLoginModel("github.com", domain.ParseScopes("repo"))
	reply := make(chan bool, 1)

	m0, _ := m.Update(tui.ConfirmRequestMsg{Message: "Try signing in with a device code instead?", Reply: reply})
	view := m0.(tui.LoginModel).View()
	if !strings.Contains(view, "device code instead") {
		t.Errorf("expected confirm message in view, got:\n%s", view)
	}

	m1, _ := m0.(tui.LoginModel).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	select {
	case answer := <-reply:
		if !answer {
			t.Error("expected 'y' to reply true")
		}
	default:
		t.Fatal("expected a reply after pressing y")
	}
	if strings.Contains(m1.(tui.LoginModel).View(), "device code instead") {
		t.Error("expected confirm prompt to be dismissed after answering")
	}
}

func TestLogin_ConfirmRequest_EscDeclines(t *testing.T) {
	m := tui.NewLoginModel("github.com", domain.ParseScopes("repo"))
	reply := make(chan bool, 1)

	m0, _ := m.Update(tui.ConfirmRequestMsg{Message: "Try the next sign-in method?", Reply: reply})
	m0.(tui.LoginModel).Update(tea.KeyMsg{Type: tea.KeyEsc})

	select {
	case answer := <-reply:
		if answer {
			t.Error("expected esc to reply false")
		}
	default:
		t.Fatal("expected a reply after pressing esc")
	}
}

func TestLogin_InputRequest_TypedTokenIsMaskedAndSubmitted(t *testing.T) {
	m := tui.NewLoginModel("github.com", domain.ParseScopes("repo"))
	reply := make(chan string, 1)

	m0, _ := m.Update(tui.InputRequestMsg{Message: "Paste a personal access token", Reply: reply})
	m1, _ := m0.(tui.LoginModel).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ghp_abc")})

	view := m1.(tui.LoginModel).View()
	if strings.Contains(view, "ghp_abc") {
		t.Errorf("expected token to be masked in view, got:\n%s", view)
	}
	if !strings.Contains(view, "*******") {
		t.Errorf("expected mask characters in view, got:\n%s", view)
	}

	m1.(tui.LoginModel).Update(tea.KeyMsg{Type: tea.KeyEnter})
	select {
	case got := <-reply:
		if got != "ghp_abc" {
			t.Errorf("expected submitted token 'ghp_abc', got '%s'", got)
		}
	default:
		t.Fatal("expected a reply after pressing enter")
	}
}

func TestLogin_EscInWorkingView_CallsOnCancel(t *testing.T) {
	m := tui.NewLoginModel("github.com", domain.ParseScopes("repo"))
	cancelled := false
	m.OnCancel = func() { cancelled = true }

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !cancelled {
		t.Error("expected esc to call OnCancel")
	}
}

func TestLogin_DoneMsg_QuitsWithResult(t *testing.T) {
	m := tui.NewLoginModel("github.com", domain.ParseScopes("repo"))

	updated, cmd := m.Update(tui.LoginDoneMsg{Result: domain.TokenResult{
		AccessToken: "gho_done",
		Scopes:      domain.ParseScopes("repo"),
	}})
	if cmd == nil {
		t.Fatal("expected a quit command after LoginDoneMsg")
	}
	view := updated.(tui.LoginModel).View()
	if !strings.Contains(view, "Signed in") {
		t.Errorf("expected success view, got:\n%s", view)
	}
}

func TestLogin_DoneMsg_ShowsFailure(t *testing.T) {
	m := tui.NewLoginModel("github.com", domain.ParseScopes("repo"))

	updated, _ := m.Update(tui.LoginDoneMsg{Err: errors.New("all sign-in methods failed")})
	view := updated.(tui.LoginModel).View()
	if !strings.Contains(view, "all sign-in methods failed") {
		t.Errorf("expected failure view, got:\n%s", view)
	}
}

func TestProgramPrompter_ConfirmRoundTrip(t *testing.T) {
	sent := make(chan tea.Msg, 1)
	prompter := tui.NewProgramPrompter(func(msg tea.Msg) { sent <- msg })

	done := make(chan bool, 1)
	go func() {
		answer, err := prompter.Confirm(context.Background(), "Continue?")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- answer
	}()

	// Answer through the message's channel the way the model does.
	req, ok := (<-sent).(tui.ConfirmRequestMsg)
	if !ok {
		t.Fatal("expected a ConfirmRequestMsg")
	}
	req.Reply <- true
	if answer := <-done; !answer {
		t.Error("expected Confirm to return the replied answer")
	}
}

func TestProgramPrompter_CancelledContextUnblocks(t *testing.T) {
	prompter := tui.NewProgramPrompter(func(tea.Msg) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := prompter.Confirm(ctx, "Continue?"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
