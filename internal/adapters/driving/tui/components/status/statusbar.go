// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/secondbrain-cli/internal/adapters/driving/tui/styles"
)

// State represents the tracking state shown in the bar.
type State string

const (
	StateStarting State = "starting"
	StatePolling  State = "polling"
	StateFinished State = "finished"
	StateStopped  State = "stopped"
	StateError    State = "error"
)

// Bar displays the tracking state and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	state    State
	message  string
	interval time.Duration
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateStarting,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateStarting:
		return s.styles.Muted.Render("Starting sync...")
	case StatePolling:
		if s.interval > 0 {
			return s.styles.Muted.Render(fmt.Sprintf("Next check in %s", s.interval.Round(100*time.Millisecond)))
		}
		return s.styles.Muted.Render("Checking...")
	case StateFinished:
		return s.styles.Muted.Render("Finished")
	case StateStopped:
		return s.styles.Warning.Render("Tracking stopped")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	}
	return ""
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets the error message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetInterval sets the wait before the next poll.
func (s *Bar) SetInterval(d time.Duration) {
	s.interval = d
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
