// Package tui renders a live view of the current print.
package tui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/printmon/internal/telemetry"
)

// Update is one refresh of the watch view.
type Update struct {
	// Source is "daemon" or "direct".
	Source   string
	Snapshot *telemetry.Snapshot
	Err      error
}

// FetchFunc produces the next update. It is called off the UI goroutine.
type FetchFunc func() Update

// Run starts the watch view and blocks until the user quits.
func Run(fetch FetchFunc, interval time.Duration) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("watch requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(fetch, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
