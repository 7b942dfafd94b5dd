package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color modes accepted by NewRenderer
const (
	ColorAuto = "auto"
	ColorOn   = "on"
	ColorOff  = "off"
)

// StyleManager encapsulates the styles used to render diffs
type StyleManager struct {
	Header  lipgloss.Style
	Same    lipgloss.Style
	Removed lipgloss.Style
	Added   lipgloss.Style
	Dim     lipgloss.Style
}

// NewRenderer returns a lipgloss renderer for w honouring the color mode.
// In auto mode colors are used only when w is a terminal.
func NewRenderer(w io.Writer, mode string) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case ColorOn:
		r.SetColorProfile(termenv.ANSI256)
	case ColorOff:
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// DefaultStyles returns a StyleManager with default styles bound to r
func DefaultStyles(r *lipgloss.Renderer) *StyleManager {
	return &StyleManager{
		Header:  r.NewStyle().Bold(true),
		Same:    r.NewStyle(),
		Removed: r.NewStyle().Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15")),
		Added:   r.NewStyle().Background(lipgloss.Color("2")).Foreground(lipgloss.Color("0")),
		Dim:     r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}
