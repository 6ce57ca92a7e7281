package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompter is the capability strategies use to talk to the user. It decouples
// the login flow from any concrete front-end: the TUI implements it by
// turning calls into messages, and TerminalPrompter implements it on plain
// stderr/stdin.
type Prompter interface {
	// Confirm asks a yes/no question. It returns false when the user
	// declines; an error means the prompt itself could not complete.
	Confirm(ctx context.Context, message string) (bool, error)
	// Input asks the user to type a value (e.g. a personal access token).
	Input(ctx context.Context, message string) (string, error)
	// OpenURL hands a URL to the user, opening a browser where possible.
	OpenURL(url string) error
	// ShowDeviceCode displays the user code and verification URI of an
	// in-flight device authorization.
	ShowDeviceCode(grant DeviceCodeGrant)
}

// TerminalPrompter implements Prompter on a plain reader/writer pair,
// normally stdin and stderr. Prompts go to stderr so stdout stays clean for
// piping.
type TerminalPrompter struct {
	out    io.Writer
	reader *bufio.Reader
}

// NewTerminalPrompter creates a TerminalPrompter reading answers from in and
// writing prompts to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{out: out, reader: bufio.NewReader(in)}
}

func (p *TerminalPrompter) Confirm(ctx context.Context, message string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N] ", message)
	line, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (p *TerminalPrompter) Input(ctx context.Context, message string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", message)
	line, err := p.readLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *TerminalPrompter) OpenURL(url string) error {
	fmt.Fprintf(p.out, "Open this URL in your browser:\n\n  %s\n\n", url)
	return nil
}

func (p *TerminalPrompter) ShowDeviceCode(grant DeviceCodeGrant) {
	fmt.Fprintf(p.out, "Visit:      %s\n", grant.VerificationURI)
	fmt.Fprintf(p.out, "Enter code: %s\n", grant.UserCode)
	fmt.Fprintf(p.out, "Waiting for authorization...\n")
}

type lineResult struct {
	line string
	err  error
}

// readLine reads a single line in a goroutine so a cancelled context can
// unblock the prompt. The dangling read drains on the next prompt, which is
// acceptable for a one-shot CLI.
func (p *TerminalPrompter) readLine(ctx context.Context) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.reader.ReadString('\n')
		ch <- lineResult{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", mapContextErr(ctx.Err())
	case res := <-ch:
		if res.err != nil && res.line == "" {
			return "", fmt.Errorf("reading input: %w", res.err)
		}
		return res.line, nil
	}
}
