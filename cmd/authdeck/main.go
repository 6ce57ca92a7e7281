package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/waabox/authdeck/internal/auth"
	"github.com/waabox/authdeck/internal/config"
	"github.com/waabox/authdeck/internal/domain"
	"github.com/waabox/authdeck/internal/git"
	"github.com/waabox/authdeck/internal/githubapi"
	"github.com/waabox/authdeck/internal/logging"
	"github.com/waabox/authdeck/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// defaultClientID is the client ID of the authdeck OAuth app registered on
// github.com. It is non-confidential (device and loopback flows need no
// secret) so it is safe to distribute with the binary. Users can override it
// with -client-id or github.client_id in ~/.config/authdeck/config.toml.
const defaultClientID = "01ab8ac9400c4e429b23"

func main() {
	scopesFlag := flag.String("scopes", "repo", "comma- or space-separated OAuth scopes to request")
	enterpriseFlag := flag.String("enterprise", "", "GitHub Enterprise Server base URL (e.g. https://ghes.corp.example)")
	clientIDFlag := flag.String("client-id", "", "OAuth app client ID (overrides config)")
	noTUIFlag := flag.Bool("no-tui", false, "use plain terminal prompts instead of the TUI")
	uriHandlerFlag := flag.Bool("uri-handler", false, "the authdeck:// URI handler is registered on this system")
	verboseFlag := flag.Bool("verbose", false, "enable debug logging to stderr")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println("authdeck", version)
		os.Exit(0)
	}

	log := logging.New(*verboseFlag)
	defer log.Sync()

	configPath := config.DefaultConfigPath()
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	provider := pickProvider(cfg, *enterpriseFlag, log)
	tm := auth.NewTokenManager(&cfg, configPath)

	command := "login"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	ctx := context.Background()
	switch command {
	case "login":
		runLogin(ctx, provider, tm, *scopesFlag, *clientIDFlag, *noTUIFlag, *uriHandlerFlag, log)
	case "status":
		runStatus(ctx, provider, tm, log)
	case "logout":
		runLogout(provider, tm)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected login, status, or logout)\n", command)
		os.Exit(1)
	}
}

// pickProvider decides which GitHub instance to sign in to: the -enterprise
// flag wins, then the configured enterprise URL, then the host of the origin
// remote in the current directory, then github.com.
func pickProvider(cfg config.Config, enterpriseURL string, log *zap.Logger) domain.Provider {
	if enterpriseURL != "" {
		return domain.Enterprise(enterpriseURL)
	}
	if cfg.Enterprise.URL != "" {
		return domain.Enterprise(cfg.Enterprise.URL)
	}
	if cwd, err := os.Getwd(); err == nil {
		if host, err := git.DetectHost(cwd); err == nil && host != "github.com" {
			log.Debug("detected enterprise remote", zap.String("host", host))
			return domain.Enterprise("https://" + host)
		}
	}
	return domain.DotCom()
}

func resolveClientID(cfg *config.Config, provider domain.Provider, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if !provider.IsDotCom() && cfg.Enterprise.ClientID != "" {
		return cfg.Enterprise.ClientID
	}
	if cfg.GitHub.ClientID != "" {
		return cfg.GitHub.ClientID
	}
	return defaultClientID
}

func runLogin(ctx context.Context, provider domain.Provider, tm *auth.TokenManager, rawScopes, clientIDFlag string, noTUI, uriHandler bool, log *zap.Logger) {
	scopes := domain.ParseScopes(rawScopes)
	if scopes.IsEmpty() {
		fmt.Fprintf(os.Stderr, "no scopes requested; pass -scopes\n")
		os.Exit(1)
	}
	clientID := resolveClientID(tm.Config(), provider, clientIDFlag)

	var result domain.TokenResult
	var loginErr error
	if noTUI {
		prompter := auth.NewTerminalPrompter(os.Stdin, os.Stderr)
		chain := buildChain(provider, clientID, prompter, uriHandler, log)
		result, loginErr = chain.Login(ctx, scopes)
	} else {
		result, loginErr = runTUILogin(ctx, provider, clientID, scopes, uriHandler, log)
	}

	if loginErr != nil {
		reportLoginError(loginErr)
		os.Exit(1)
	}

	if err := tm.Store(provider, result); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "Authenticated to %s. Token saved to %s\n", provider.Name, config.DefaultConfigPath())
	}
	fmt.Fprintf(os.Stderr, "Granted scopes: [%s]\n", result.Scopes)
}

// buildChain assembles the strategy chain in fixed priority order:
// browser redirect, loopback server, device code, manual token.
func buildChain(provider domain.Provider, clientID string, prompter auth.Prompter, uriHandler bool, log *zap.Logger) *auth.Chain {
	tracker := auth.NewPendingTracker()
	exchanger := auth.NewExchanger(provider, clientID, log)
	api := githubapi.NewClient(provider, log)
	flow := auth.NewDeviceFlow(provider, clientID, log)

	strategies := []auth.Strategy{
		auth.NewBrowserStrategy(provider, clientID, tracker, exchanger, prompter, uriHandler, log),
		auth.NewLoopbackStrategy(provider, clientID, tracker, exchanger, prompter, log),
		auth.NewDeviceCodeStrategy(provider, flow, prompter, api),
		auth.NewManualStrategy(provider, prompter, api),
	}
	return auth.NewChain(strategies, prompter, true, log)
}

// runTUILogin drives the chain under the Bubbletea login screen. The chain
// runs in its own goroutine and reports back through a LoginDoneMsg.
func runTUILogin(ctx context.Context, provider domain.Provider, clientID string, scopes domain.ScopeSet, uriHandler bool, log *zap.Logger) (domain.TokenResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewLoginModel(provider.Name, scopes)
	model.OnCancel = cancel
	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		prompter := tui.NewProgramPrompter(p.Send)
		chain := buildChain(provider, clientID, prompter, uriHandler, log)
		result, err := chain.Login(ctx, scopes)
		p.Send(tui.LoginDoneMsg{Result: result, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return domain.TokenResult{}, fmt.Errorf("running login screen: %w", err)
	}
	return final.(tui.LoginModel).Outcome()
}

func runStatus(ctx context.Context, provider domain.Provider, tm *auth.TokenManager, log *zap.Logger) {
	token := tm.Token(provider)
	if token == "" {
		fmt.Fprintf(os.Stderr, "Not signed in to %s.\n", provider.Name)
		os.Exit(1)
	}
	api := githubapi.NewClient(provider, log)
	user, err := api.User(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			fmt.Fprintf(os.Stderr, "Stored token for %s is no longer valid. Run 'authdeck login'.\n", provider.Name)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error checking token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signed in to %s as %s\n", provider.Name, user.Login)
	if !user.GrantedScopes.IsEmpty() {
		fmt.Printf("Scopes: [%s]\n", user.GrantedScopes)
	}
}

func runLogout(provider domain.Provider, tm *auth.TokenManager) {
	if tm.Token(provider) == "" {
		fmt.Fprintf(os.Stderr, "Not signed in to %s.\n", provider.Name)
		return
	}
	if err := tm.Clear(provider); err != nil {
		fmt.Fprintf(os.Stderr, "error clearing token: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Signed out of %s.\n", provider.Name)
}

func reportLoginError(err error) {
	switch {
	case errors.Is(err, domain.ErrUserCancelled):
		fmt.Fprintf(os.Stderr, "Sign-in cancelled.\n")
	case errors.Is(err, domain.ErrTimeout):
		fmt.Fprintf(os.Stderr, "Sign-in timed out.\n")
	default:
		var noStrategy *domain.NoStrategyError
		if errors.As(err, &noStrategy) {
			fmt.Fprintf(os.Stderr, "All sign-in methods failed:\n")
			for _, cause := range noStrategy.Causes {
				fmt.Fprintf(os.Stderr, "  - %v\n", cause)
			}
			return
		}
		fmt.Fprintf(os.Stderr, "Sign-in failed: %v\n", err)
	}
}
