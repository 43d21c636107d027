// Package styles holds the colours and lipgloss styles of the sync view.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

// Theme is the palette of the sync view.
type Theme struct {
	// Accent colours the title.
	Accent lipgloss.Color
	// GradientStart and GradientEnd colour the progress bar.
	GradientStart lipgloss.Color
	GradientEnd   lipgloss.Color
	// Text is the default foreground.
	Text lipgloss.Color
	// Subtle is used for labels and hints.
	Subtle lipgloss.Color
	// Done marks a completed sync.
	Done lipgloss.Color
	// Pending marks a sync the service has not started yet.
	Pending lipgloss.Color
	// Failed marks failures and expired sessions.
	Failed lipgloss.Color
	// Frame colours the panel border.
	Frame lipgloss.Color
	// Bar is the status bar background.
	Bar lipgloss.Color
}

// DefaultTheme returns the teal and amber palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:        lipgloss.Color("#2DD4BF"),
		GradientStart: lipgloss.Color("#14B8A6"),
		GradientEnd:   lipgloss.Color("#F59E0B"),
		Text:          lipgloss.Color("#E5E7EB"),
		Subtle:        lipgloss.Color("#9CA3AF"),
		Done:          lipgloss.Color("#4ADE80"),
		Pending:       lipgloss.Color("#FBBF24"),
		Failed:        lipgloss.Color("#F87171"),
		Frame:         lipgloss.Color("#374151"),
		Bar:           lipgloss.Color("#111827"),
	}
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	theme *Theme

	Title     lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	StatusBar lipgloss.Style
	// Panel frames the progress bar and counters.
	Panel lipgloss.Style
}

// NewStyles derives styles from theme. A nil theme means DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	base := lipgloss.NewStyle()
	return &Styles{
		theme:     theme,
		Title:     base.Bold(true).Foreground(theme.Accent),
		Label:     base.Foreground(theme.Subtle).Width(12),
		Value:     base.Foreground(theme.Text),
		Muted:     base.Foreground(theme.Subtle).Italic(true),
		Error:     base.Foreground(theme.Failed),
		Success:   base.Bold(true).Foreground(theme.Done),
		Warning:   base.Foreground(theme.Pending),
		StatusBar: base.Foreground(theme.Subtle).Background(theme.Bar).Padding(0, 1),
		Panel:     base.Border(lipgloss.RoundedBorder()).BorderForeground(theme.Frame).Padding(1, 2),
	}
}

// DefaultStyles returns NewStyles(DefaultTheme()).
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Status returns the style for a sync status label.
func (s *Styles) Status(status domain.SyncStatus) lipgloss.Style {
	switch status {
	case domain.SyncStatusCompleted:
		return s.Success
	case domain.SyncStatusFailed:
		return s.Error
	case domain.SyncStatusIdle:
		return s.Warning
	default:
		return s.Value
	}
}
