// Package components provides shared UI components for the TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dtg01100/systemctl-manager/internal/actions"
	"github.com/dtg01100/systemctl-manager/internal/view"
)

// Color palette - based on a professional dark theme
var (
	// Primary colors
	ColorPrimary       = lipgloss.Color("62") // Muted blue
	ColorPrimaryBright = lipgloss.Color("75") // Brighter blue
	ColorAccent        = lipgloss.Color("86") // Cyan/teal
	ColorSurface       = lipgloss.Color("236")

	// Text colors
	ColorText       = lipgloss.Color("252")
	ColorTextMuted  = lipgloss.Color("243")
	ColorTextBright = lipgloss.Color("15")

	// Semantic colors
	ColorSuccess  = lipgloss.Color("82")  // Green
	ColorWarning  = lipgloss.Color("214") // Orange
	ColorError    = lipgloss.Color("196") // Red
	ColorInfo     = lipgloss.Color("117") // Light blue
	ColorFavorite = lipgloss.Color("220") // Yellow
)

// Styles contains common styling for the TUI.
var Styles = struct {
	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Selected   lipgloss.Style
	Separator  lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	Info       lipgloss.Style
	Border     lipgloss.Style
	HelpText   lipgloss.Style
	StatusLine lipgloss.Style
	Header     lipgloss.Style
	MenuKey    lipgloss.Style
	Search     lipgloss.Style
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorTextBright).
		Background(ColorPrimary).
		Padding(0, 2),
	Subtitle: lipgloss.NewStyle().
		Italic(true).
		Foreground(ColorTextMuted),
	Normal: lipgloss.NewStyle().
		Foreground(ColorText),
	Selected: lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent),
	Separator: lipgloss.NewStyle().
		Foreground(ColorTextMuted),
	Error: lipgloss.NewStyle().
		Foreground(ColorError),
	Success: lipgloss.NewStyle().
		Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().
		Foreground(ColorWarning),
	Info: lipgloss.NewStyle().
		Foreground(ColorInfo),
	Border: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(0, 1),
	HelpText: lipgloss.NewStyle().
		Italic(true).
		Foreground(ColorTextMuted),
	StatusLine: lipgloss.NewStyle().
		Foreground(ColorTextBright).
		Background(ColorSurface).
		Padding(0, 1),
	Header: lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorTextBright).
		Background(ColorPrimary).
		Padding(0, 1),
	MenuKey: lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimaryBright),
	Search: lipgloss.NewStyle().
		Foreground(ColorAccent),
}

// iconGlyphs maps view icon names to terminal glyphs.
var iconGlyphs = map[string]string{
	view.IconStar:  "★",
	view.IconPlay:  "●",
	view.IconError: "✗",
	view.IconStop:  "○",
}

// iconColors maps view color names to the palette.
var iconColors = map[string]lipgloss.Color{
	view.ColorYellow: ColorFavorite,
	view.ColorGreen:  ColorSuccess,
	view.ColorRed:    ColorError,
	view.ColorGray:   ColorTextMuted,
}

// Glyph returns the unstyled glyph for an icon, or a space for unknown ones.
func Glyph(icon view.Icon) string {
	if g, ok := iconGlyphs[icon.Name]; ok {
		return g
	}
	return " "
}

// RenderIcon returns the colored glyph for an icon.
func RenderIcon(icon view.Icon) string {
	style := lipgloss.NewStyle()
	if c, ok := iconColors[icon.Color]; ok {
		style = style.Foreground(c)
	}
	return style.Render(Glyph(icon))
}

// HelpItem represents a help item with key and description.
type HelpItem struct {
	Key  string
	Desc string
}

// HelpBar renders a help bar showing keybindings.
func HelpBar(width int, items []HelpItem) string {
	var parts []string
	for _, item := range items {
		parts = append(parts, Styles.MenuKey.Render(item.Key)+Styles.HelpText.Render(" "+item.Desc))
	}

	content := strings.Join(parts, Styles.HelpText.Render(" • "))
	return Styles.StatusLine.Width(width).MaxWidth(width).Render(content)
}

// TitleBar renders a title bar with the application name and version.
func TitleBar(width int, title, version string) string {
	left := Styles.Header.Render(title)
	right := Styles.Subtitle.Render("v" + version + "  [?] Help  [q] Quit")

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	return lipgloss.JoinHorizontal(lipgloss.Left,
		left,
		strings.Repeat(" ", padding),
		right,
	)
}

// StatusBar renders a status line at the bottom of the screen.
func StatusBar(width int, text string) string {
	return Styles.StatusLine.Width(width).Render(text)
}

// Truncate shortens text to maxLen runes, ending in "..." when cut.
func Truncate(text string, maxLen int) string {
	r := []rune(text)
	if len(r) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// RenderError renders an error message.
func RenderError(text string) string {
	return Styles.Error.Render("✗ " + text)
}

// RenderSuccess renders a success message.
func RenderSuccess(text string) string {
	return Styles.Success.Render("✓ " + text)
}

// RenderWarning renders a warning message.
func RenderWarning(text string) string {
	return Styles.Warning.Render("⚠ " + text)
}

// RenderInfo renders an info message.
func RenderInfo(text string) string {
	return Styles.Info.Render("ℹ " + text)
}

// RenderNotification renders a dispatcher notification for the status line.
func RenderNotification(n actions.Notification) string {
	if n.Text == "" {
		return ""
	}
	if n.IsError() {
		return RenderError(n.Text)
	}
	return RenderSuccess(n.Text)
}
