package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/waabox/authdeck/internal/auth"
	"github.com/waabox/authdeck/internal/domain"
)

// ConfirmRequestMsg asks the user a yes/no question from the login chain.
// It is exported so that tests can inject it directly into LoginModel.Update.
type ConfirmRequestMsg struct {
	Message string
	Reply   chan bool
}

// InputRequestMsg asks the user to type a value (e.g. a personal access token).
type InputRequestMsg struct {
	Message string
	Reply   chan string
}

// URLOpenedMsg reports that a sign-in URL was handed to the browser.
type URLOpenedMsg struct {
	URL string
}

// DeviceCodeShownMsg carries an in-flight device authorization to display.
type DeviceCodeShownMsg struct {
	Grant auth.DeviceCodeGrant
}

// LoginDoneMsg signals that the login chain finished, one way or the other.
type LoginDoneMsg struct {
	Result domain.TokenResult
	Err    error
}

// viewState indicates what the login screen is currently showing.
type viewState int

const (
	viewWorking viewState = iota
	viewConfirm
	viewInput
	viewDeviceCode
	viewDone
	viewFailed
)

// LoginModel is the root Bubbletea model for the interactive login flow. It
// renders whatever the strategy chain is doing and routes the user's answers
// back through reply channels.
type LoginModel struct {
	providerName string
	scopes       domain.ScopeSet

	view    viewState
	url     string
	grant   auth.DeviceCodeGrant
	confirm ConfirmRequestMsg
	input   InputRequestMsg
	typed   string
	result  domain.TokenResult
	err     error
	width   int

	// OnCancel is called when the user aborts; the caller uses it to cancel
	// the chain's context. Set by the caller via the exported field.
	OnCancel func()
}

// NewLoginModel creates the login model for a provider and scope request.
func NewLoginModel(providerName string, scopes domain.ScopeSet) LoginModel {
	return LoginModel{providerName: providerName, scopes: scopes}
}

func (m LoginModel) Init() tea.Cmd { return nil }

// Update handles all incoming messages and key events.
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case URLOpenedMsg:
		m.url = msg.URL
		m.view = viewWorking

	case DeviceCodeShownMsg:
		m.grant = msg.Grant
		m.view = viewDeviceCode

	case ConfirmRequestMsg:
		m.confirm = msg
		m.view = viewConfirm

	case InputRequestMsg:
		m.input = msg
		m.typed = ""
		m.view = viewInput

	case LoginDoneMsg:
		m.result = msg.Result
		m.err = msg.Err
		if msg.Err != nil {
			m.view = viewFailed
		} else {
			m.view = viewDone
		}
		return m, tea.Quit

	case tea.KeyMsg:
		switch m.view {
		case viewConfirm:
			return m.updateConfirm(msg)
		case viewInput:
			return m.updateInput(msg)
		default:
			return m.updateWorking(msg)
		}
	}
	return m, nil
}

func (m LoginModel) updateWorking(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c", "q":
		m.cancel()
	}
	return m, nil
}

func (m LoginModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.confirm.Reply <- true
		m.view = viewWorking
		m.confirm = ConfirmRequestMsg{}
	case "n", "N", "esc", "enter":
		m.confirm.Reply <- false
		m.view = viewWorking
		m.confirm = ConfirmRequestMsg{}
	case "ctrl+c":
		m.cancel()
	}
	return m, nil
}

func (m LoginModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.input.Reply <- strings.TrimSpace(m.typed)
		m.view = viewWorking
		m.input = InputRequestMsg{}
		m.typed = ""
	case "esc":
		// Empty input means the user declined to paste a token.
		m.input.Reply <- ""
		m.view = viewWorking
		m.input = InputRequestMsg{}
		m.typed = ""
	case "ctrl+c":
		m.cancel()
	case "backspace":
		if len(m.typed) > 0 {
			m.typed = m.typed[:len(m.typed)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.typed += string(msg.Runes)
		}
	}
	return m, nil
}

// Outcome returns the final login result after the program has quit.
func (m LoginModel) Outcome() (domain.TokenResult, error) {
	return m.result, m.err
}

func (m LoginModel) cancel() {
	if m.OnCancel != nil {
		m.OnCancel()
	}
}

// View renders the login screen.
func (m LoginModel) View() string {
	header := fmt.Sprintf(" authdeck — Sign in to %s\n", m.providerName)
	separator := "────────────────────────────────────────────────────────────\n"

	var body, footer string
	switch m.view {
	case viewConfirm:
		body = fmt.Sprintf("\n %s\n\n", m.confirm.Message)
		footer = " y: yes   n: no\n"
	case viewInput:
		masked := strings.Repeat("*", len(m.typed))
		body = fmt.Sprintf("\n %s\n\n > %s\n\n", m.input.Message, masked)
		footer = " enter: submit   esc: skip\n"
	case viewDeviceCode:
		body = fmt.Sprintf(
			"\n Visit:  %s\n Code:   %s\n\n Waiting for authorization...\n\n",
			m.grant.VerificationURI, m.grant.UserCode)
		footer = " Press ESC to cancel\n"
	case viewDone:
		body = fmt.Sprintf("\n Signed in. Scopes: [%s]\n\n", m.result.Scopes)
		footer = "\n"
	case viewFailed:
		body = fmt.Sprintf("\n Sign-in failed: %v\n\n", m.err)
		footer = "\n"
	default:
		body = fmt.Sprintf("\n Requesting scopes: [%s]\n\n Waiting for the sign-in to complete...\n\n", m.scopes)
		if m.url != "" {
			body = fmt.Sprintf(
				"\n Requesting scopes: [%s]\n\n Your browser should have opened:\n\n   %s\n\n Waiting for the sign-in to complete...\n\n",
				m.scopes, m.url)
		}
		footer = " Press ESC to cancel\n"
	}
	return header + separator + body + separator + footer
}

// ProgramPrompter implements auth.Prompter on top of a running Bubbletea
// program: each prompt becomes a message to the model, and the calling
// strategy blocks until the user answers or the context ends.
type ProgramPrompter struct {
	send func(tea.Msg)
}

// NewProgramPrompter creates a ProgramPrompter. send is normally
// (*tea.Program).Send.
func NewProgramPrompter(send func(tea.Msg)) *ProgramPrompter {
	return &ProgramPrompter{send: send}
}

func (p *ProgramPrompter) Confirm(ctx context.Context, message string) (bool, error) {
	reply := make(chan bool, 1)
	p.send(ConfirmRequestMsg{Message: message, Reply: reply})
	select {
	case answer := <-reply:
		return answer, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (p *ProgramPrompter) Input(ctx context.Context, message string) (string, error) {
	reply := make(chan string, 1)
	p.send(InputRequestMsg{Message: message, Reply: reply})
	select {
	case answer := <-reply:
		return answer, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *ProgramPrompter) OpenURL(url string) error {
	p.send(URLOpenedMsg{URL: url})
	// Launch failure is not an error: the URL is on screen either way.
	_ = openBrowser(url)
	return nil
}

func (p *ProgramPrompter) ShowDeviceCode(grant auth.DeviceCodeGrant) {
	p.send(DeviceCodeShownMsg{Grant: grant})
}
