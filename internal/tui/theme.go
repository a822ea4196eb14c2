package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorBackground = lipgloss.Color("#0f0f0f")
	ColorSurface    = lipgloss.Color("#161616")
	ColorBorder     = lipgloss.Color("#2a2a2a")

	// Accent (teal)
	ColorAccent    = lipgloss.Color("#14b8a6")
	ColorAccentDim = lipgloss.Color("#0f766e")

	ColorSuccess = lipgloss.Color("#30d158")
	ColorWarning = lipgloss.Color("#ffd60a")
	ColorError   = lipgloss.Color("#ff453a")
	ColorInfo    = lipgloss.Color("#64d2ff")

	ColorTextPrimary   = lipgloss.Color("#ffffff")
	ColorTextSecondary = lipgloss.Color("#d0d0d0")
	ColorTextMuted     = lipgloss.Color("#808080")
)

// Theme contains all styled components.
type Theme struct {
	App   lipgloss.Style
	Panel lipgloss.Style

	HeaderContainer lipgloss.Style
	Logo            lipgloss.Style
	LogoDot         lipgloss.Style
	RunID           lipgloss.Style

	FooterContainer lipgloss.Style
	FooterKey       lipgloss.Style
	FooterLabel     lipgloss.Style

	Title      lipgloss.Style
	Label      lipgloss.Style
	Value      lipgloss.Style
	ValueMuted lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusInfo    lipgloss.Style

	BadgeSuccess lipgloss.Style
	BadgeWarning lipgloss.Style
	BadgeError   lipgloss.Style
	BadgeMuted   lipgloss.Style

	ListItem       lipgloss.Style
	ListItemActive lipgloss.Style
	ListCursor     lipgloss.Style

	EventTime    lipgloss.Style
	EventService lipgloss.Style

	Divider lipgloss.Style
	Help    lipgloss.Style
	HelpKey lipgloss.Style
	Spinner lipgloss.Style
}

// NewTheme creates the stackboot themed styles.
func NewTheme() *Theme {
	t := &Theme{}

	t.App = lipgloss.NewStyle().
		Background(ColorBackground).
		Foreground(ColorTextPrimary)

	t.Panel = lipgloss.NewStyle().
		Background(ColorSurface).
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	t.HeaderContainer = lipgloss.NewStyle().
		Background(ColorSurface).
		Padding(0, 2).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorBorder)

	t.Logo = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorTextPrimary)

	t.LogoDot = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	t.RunID = lipgloss.NewStyle().
		Foreground(ColorTextMuted)

	t.FooterContainer = lipgloss.NewStyle().
		Background(ColorSurface).
		Padding(0, 2).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(ColorBorder)

	t.FooterKey = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	t.FooterLabel = lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		MarginRight(2)

	t.Title = lipgloss.NewStyle().
		Foreground(ColorTextPrimary).
		Bold(true).
		MarginBottom(1)

	t.Label = lipgloss.NewStyle().
		Foreground(ColorTextSecondary)

	t.Value = lipgloss.NewStyle().
		Foreground(ColorTextPrimary)

	t.ValueMuted = lipgloss.NewStyle().
		Foreground(ColorTextMuted)

	t.StatusSuccess = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	t.StatusError = lipgloss.NewStyle().
		Foreground(ColorError)

	t.StatusWarning = lipgloss.NewStyle().
		Foreground(ColorWarning)

	t.StatusInfo = lipgloss.NewStyle().
		Foreground(ColorInfo)

	t.BadgeSuccess = lipgloss.NewStyle().
		Background(ColorSuccess).
		Foreground(lipgloss.Color("#000000")).
		Padding(0, 1).
		Bold(true)

	t.BadgeWarning = lipgloss.NewStyle().
		Background(ColorWarning).
		Foreground(lipgloss.Color("#000000")).
		Padding(0, 1).
		Bold(true)

	t.BadgeError = lipgloss.NewStyle().
		Background(ColorError).
		Foreground(lipgloss.Color("#ffffff")).
		Padding(0, 1).
		Bold(true)

	t.BadgeMuted = lipgloss.NewStyle().
		Background(ColorSurface).
		Foreground(ColorTextMuted).
		Padding(0, 1)

	t.ListItem = lipgloss.NewStyle().
		Foreground(ColorTextPrimary).
		Padding(0, 1)

	t.ListItemActive = lipgloss.NewStyle().
		Background(ColorAccentDim).
		Foreground(ColorTextPrimary).
		Padding(0, 1)

	t.ListCursor = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	t.EventTime = lipgloss.NewStyle().
		Foreground(ColorTextMuted).
		Width(9)

	t.EventService = lipgloss.NewStyle().
		Foreground(ColorInfo).
		Width(12)

	t.Divider = lipgloss.NewStyle().
		Foreground(ColorBorder)

	t.Help = lipgloss.NewStyle().
		Foreground(ColorTextMuted)

	t.HelpKey = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	t.Spinner = lipgloss.NewStyle().
		Foreground(ColorAccent)

	return t
}

// DefaultTheme is the global theme instance.
var DefaultTheme = NewTheme()

// StatusDot returns a colored status indicator dot.
func StatusDot(ok bool) string {
	if ok {
		return DefaultTheme.StatusSuccess.Render("●")
	}
	return DefaultTheme.StatusError.Render("●")
}

// RenderKeyHelp renders a key binding hint.
func RenderKeyHelp(key, label string) string {
	return DefaultTheme.HelpKey.Render(key) + " " + DefaultTheme.Help.Render(label)
}

// HorizontalLine creates a horizontal divider.
func HorizontalLine(width int) string {
	return DefaultTheme.Divider.Render(strings.Repeat("─", width))
}
