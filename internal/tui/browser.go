package tui

import (
	"os/exec"
	"runtime"
)

// openBrowser launches the system browser at url. Failure is non-fatal: the
// URL is always rendered on screen so the user can open it themselves.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
