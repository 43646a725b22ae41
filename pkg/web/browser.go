package web

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openBrowser asks the desktop to open url.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		return fmt.Errorf("no browser launcher for %s", runtime.GOOS)
	}

	return cmd.Start()
}
