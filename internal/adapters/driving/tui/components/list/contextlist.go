// Package list provides the retrieved-context list component for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragline/internal/core/domain"
)

// previewLength is the number of runes shown for a collapsed context.
const previewLength = 120

// ContextList shows the re-ranked contexts an answer was grounded on.
// The selected entry can be expanded to its full text.
type ContextList struct {
	styles   *styles.Styles
	contexts []domain.RetrievalCandidate
	selected int
	expanded bool
	width    int
	height   int
}

// NewContextList creates an empty list.
func NewContextList(s *styles.Styles) *ContextList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ContextList{styles: s, width: 80, height: 10}
}

// Init initialises the list.
func (l *ContextList) Init() tea.Cmd {
	return nil
}

// Update handles navigation keys.
func (l *ContextList) Update(msg tea.Msg) (*ContextList, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}
	switch keyMsg.String() {
	case "up", "k":
		l.SelectPrev()
	case "down", "j":
		l.SelectNext()
	case "enter":
		l.expanded = !l.expanded
	}
	return l, nil
}

// View renders the list. Collapsed entries show a one-line preview.
func (l *ContextList) View() string {
	if len(l.contexts) == 0 {
		return l.styles.Muted.Render("No contexts.")
	}

	var b strings.Builder
	for i, c := range l.contexts {
		b.WriteString(l.renderHeader(i, c))
		b.WriteString("\n")
		body := preview(c.Content, previewLength)
		if i == l.selected && l.expanded {
			body = lipgloss.NewStyle().Width(max(l.width-4, 20)).Render(c.Content)
		}
		b.WriteString(l.styles.Normal.Render(indent(body, "    ")))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (l *ContextList) renderHeader(i int, c domain.RetrievalCandidate) string {
	score := "unscored"
	if c.Judged {
		score = fmt.Sprintf("%4.1f/10", c.Score)
	}
	header := fmt.Sprintf("%d. %s #%d", i+1, c.DocumentID, c.Position)
	meta := fmt.Sprintf(" dist %.3f", c.Distance)

	if i == l.selected {
		return l.styles.Selected.Render(header) + " " +
			l.styles.ScoreStyle(c.Score).Render(score) + l.styles.Muted.Render(meta)
	}
	return l.styles.Subtitle.Render(header) + " " +
		l.styles.ScoreStyle(c.Score).Render(score) + l.styles.Muted.Render(meta)
}

// SetContexts replaces the list contents and resets the selection.
func (l *ContextList) SetContexts(contexts []domain.RetrievalCandidate) {
	l.contexts = contexts
	l.selected = 0
	l.expanded = false
}

// Contexts returns the current entries.
func (l *ContextList) Contexts() []domain.RetrievalCandidate {
	return l.contexts
}

// Selected returns the selected index.
func (l *ContextList) Selected() int {
	return l.selected
}

// SelectedContext returns the selected entry, or nil when empty.
func (l *ContextList) SelectedContext() *domain.RetrievalCandidate {
	if l.selected < 0 || l.selected >= len(l.contexts) {
		return nil
	}
	return &l.contexts[l.selected]
}

// Expanded reports whether the selected entry shows its full text.
func (l *ContextList) Expanded() bool {
	return l.expanded
}

// SelectNext moves the selection down. Expansion follows the selection
// only while it stays on the same entry.
func (l *ContextList) SelectNext() {
	if l.selected < len(l.contexts)-1 {
		l.selected++
		l.expanded = false
	}
}

// SelectPrev moves the selection up.
func (l *ContextList) SelectPrev() {
	if l.selected > 0 {
		l.selected--
		l.expanded = false
	}
}

// SetSize sets the render area.
func (l *ContextList) SetSize(width, height int) {
	l.width = width
	l.height = height
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
