// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Hex colors for dark terminal backgrounds.
const (
	colorPrimary   = lipgloss.Color("#7C3AED") // titles, table headers
	colorMuted     = lipgloss.Color("#6B7280") // subtitles, borders
	colorSuccess   = lipgloss.Color("#10B981") // compatible, satisfying
	colorError     = lipgloss.Color("#EF4444")
	colorWarning   = lipgloss.Color("#F59E0B") // prereleases, cycles
	colorHighlight = lipgloss.Color("#3B82F6") // package IDs, config keys
	colorVerbose   = lipgloss.Color("#9CA3AF")
)

// palette is the set of styles one command invocation renders with. The
// plain palette leaves every string untouched so output stays byte-stable
// when color is disabled (NO_COLOR, ui.color=false, --no-color).
type palette struct {
	title, subtitle, success, fail, warning, key, verbose lipgloss.Style
	border                                                lipgloss.Style
}

func newPalette(color bool) palette {
	if !color {
		plain := lipgloss.NewStyle()
		return palette{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	return palette{
		title:    fg(colorPrimary).Bold(true),
		subtitle: fg(colorMuted),
		success:  fg(colorSuccess),
		fail:     fg(colorError).Bold(true),
		warning:  fg(colorWarning),
		key:      fg(colorHighlight),
		verbose:  fg(colorVerbose),
		border:   fg(colorMuted),
	}
}

// helpPalette styles the static help text, which is rendered before any
// configuration is loaded.
var helpPalette = newPalette(true)
