// Package render draws query state for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aitoolsintegration-prog/chainref/internal/domain/entities"
	"github.com/aitoolsintegration-prog/chainref/internal/domain/usecases"
)

var (
	Primary     = lipgloss.Color("#101F38")
	Accent      = lipgloss.Color("#8BC34A")
	Muted       = lipgloss.Color("#6B7280")
	Destructive = lipgloss.Color("#e53935")
	Info        = lipgloss.Color("#2196F3")
)

// Styles used by Renderer.
type Styles struct {
	Title      lipgloss.Style
	Summary    lipgloss.Style
	Card       lipgloss.Style
	Reference  lipgloss.Style
	Linking    lipgloss.Style
	CrossTheme lipgloss.Style
	Error      lipgloss.Style
	Hint       lipgloss.Style
}

// DefaultStyles returns the chainref palette.
func DefaultStyles() Styles {
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(Accent),
		Summary:    lipgloss.NewStyle().Italic(true),
		Card:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Muted).Padding(0, 1),
		Reference:  lipgloss.NewStyle().Bold(true).Foreground(Info),
		Linking:    lipgloss.NewStyle().Faint(true),
		CrossTheme: lipgloss.NewStyle().Foreground(Muted),
		Error:      lipgloss.NewStyle().Bold(true).Foreground(Destructive),
		Hint:       lipgloss.NewStyle().Foreground(Muted),
	}
}

// Renderer turns a controller state into text.
type Renderer struct {
	styles Styles
}

// NewRenderer creates a Renderer with the default styles.
func NewRenderer() *Renderer {
	return &Renderer{styles: DefaultStyles()}
}

// State renders whichever of the five views s is in.
func (r *Renderer) State(s usecases.State) string {
	switch s.View() {
	case usecases.ViewLoading:
		return r.styles.Hint.Render("Searching...")
	case usecases.ViewFailed:
		return r.styles.Error.Render(s.Error)
	case usecases.ViewIdle:
		return r.styles.Hint.Render("No results yet. Ask a question.")
	default:
		return r.Result(s.Result)
	}
}

// Result renders the chain in backend order.
func (r *Renderer) Result(result *entities.QueryResult) string {
	var sb strings.Builder
	sb.WriteString(r.styles.Title.Render(result.Theme))
	sb.WriteString("\n")
	if result.Summary != "" {
		sb.WriteString(r.styles.Summary.Render(result.Summary))
		sb.WriteString("\n")
	}

	if len(result.Chain) == 0 {
		sb.WriteString(r.styles.Hint.Render("No passages returned for this question."))
		return sb.String()
	}

	cards := make([]string, len(result.Chain))
	for i, entry := range result.Chain {
		cards[i] = r.entry(entry)
	}
	sb.WriteString(lipgloss.JoinVertical(lipgloss.Left, cards...))
	return sb.String()
}

func (r *Renderer) entry(e entities.ChainEntry) string {
	lines := []string{
		r.styles.Reference.Render(fmt.Sprintf("%d. %s", e.Order, e.Reference)),
		e.Text,
		r.styles.Linking.Render(e.LinkingPhrase),
	}
	for _, conn := range e.CrossThemeConnections {
		lines = append(lines, r.styles.CrossTheme.Render(fmt.Sprintf("[%s] %s: %s", conn.Theme, conn.Reference, conn.Text)))
	}
	if e.IsTerminal() {
		lines = append(lines, r.styles.Hint.Render("(end of chain)"))
	} else {
		lines = append(lines, r.styles.Hint.Render("next: "+*e.NextReference))
	}
	return r.styles.Card.Render(strings.Join(lines, "\n"))
}
