// Package tmux contains the HAL Live adapter: pipeline runs attached to a
// tmux session so an operator can watch and intervene.
package tmux

import (
	"context"
	"fmt"

	"github.com/GianlucaP106/gotmux/gotmux"
)

// Adapter manages HAL Live sessions. One session per run, named
// "speckit-<spec-id>", with a monitor pane tailing the run and a shell pane.
type Adapter struct {
	tmux *gotmux.Tmux
}

// NewAdapter creates a tmux adapter; it fails when no tmux binary is
// available, which callers treat as HAL Live being unsupported.
func NewAdapter() (*Adapter, error) {
	client, err := gotmux.DefaultTmux()
	if err != nil {
		return nil, fmt.Errorf("failed to create tmux client: %w", err)
	}
	return &Adapter{tmux: client}, nil
}

// SessionName returns the HAL session name for a spec.
func SessionName(specID string) string {
	return "speckit-" + specID
}

// CreateRunSession creates the two-pane HAL window for a run: the monitor
// command on the left, a plain shell on the right.
func (a *Adapter) CreateRunSession(ctx context.Context, specID, workdir, monitorCmd string) error {
	name := SessionName(specID)
	if a.sessionExists(name) {
		return fmt.Errorf("session %s already exists", name)
	}

	session, err := a.tmux.NewSession(&gotmux.SessionOptions{
		Name:           name,
		StartDirectory: workdir,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	windows, err := session.ListWindows()
	if err != nil || len(windows) == 0 {
		return fmt.Errorf("no windows in new session")
	}
	window := windows[0]
	if err := window.Rename("pipeline"); err != nil {
		return fmt.Errorf("failed to rename window: %w", err)
	}

	panes, err := window.ListPanes()
	if err != nil || len(panes) == 0 {
		return fmt.Errorf("failed to get initial pane: %w", err)
	}
	monitorPane := panes[0]

	if err := monitorPane.SplitWindow(&gotmux.SplitWindowOptions{
		SplitDirection: gotmux.PaneSplitDirectionVertical,
		StartDirectory: workdir,
	}); err != nil {
		return fmt.Errorf("failed to split for shell pane: %w", err)
	}

	if monitorCmd != "" {
		if err := monitorPane.SendKeys(monitorCmd); err != nil {
			return fmt.Errorf("failed to start monitor: %w", err)
		}
	}
	return nil
}

// KillRunSession terminates the HAL session for a spec.
func (a *Adapter) KillRunSession(ctx context.Context, specID string) error {
	name := SessionName(specID)
	sessions, err := a.tmux.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, s := range sessions {
		if s.Name == name {
			return s.Kill()
		}
	}
	return fmt.Errorf("session %s not found", name)
}

// HasRunSession reports whether a HAL session exists for a spec.
func (a *Adapter) HasRunSession(ctx context.Context, specID string) bool {
	return a.sessionExists(SessionName(specID))
}

// AttachInstructions returns the operator hint for joining a HAL session.
func (a *Adapter) AttachInstructions(specID string) string {
	return fmt.Sprintf("Attach to the run: tmux attach -t %s\nDetach without stopping: Ctrl+b then d\n", SessionName(specID))
}

func (a *Adapter) sessionExists(name string) bool {
	sessions, err := a.tmux.ListSessions()
	if err != nil {
		return false
	}
	for _, s := range sessions {
		if s.Name == name {
			return true
		}
	}
	return false
}
