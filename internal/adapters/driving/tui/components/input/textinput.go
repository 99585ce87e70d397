// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/styles"
)

// questionLimit caps the question length typed into the TUI.
const questionLimit = 1024

// QuestionInput wraps a bubbles textinput for entering questions.
type QuestionInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	label     string
	width     int
}

// NewQuestionInput creates a focused question input.
func NewQuestionInput(s *styles.Styles) *QuestionInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask a question about your documents..."
	ti.Focus()
	ti.CharLimit = questionLimit
	ti.Width = 60

	return &QuestionInput{
		textinput: ti,
		styles:    s,
		label:     "Ask: ",
		width:     60,
	}
}

// Init starts the cursor blink.
func (q *QuestionInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (q *QuestionInput) Update(msg tea.Msg) (*QuestionInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the labelled input.
func (q *QuestionInput) View() string {
	label := q.styles.Title.Render(q.label)
	field := q.styles.InputField.Render(q.textinput.View())
	//nolint:misspell // lipgloss.Center is the library constant
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// SetLabel replaces the prompt label, e.g. to show an active title filter.
func (q *QuestionInput) SetLabel(label string) {
	q.label = label
}

func (q *QuestionInput) Value() string         { return q.textinput.Value() }
func (q *QuestionInput) SetValue(value string) { q.textinput.SetValue(value) }
func (q *QuestionInput) Focus() tea.Cmd        { return q.textinput.Focus() }
func (q *QuestionInput) Blur()                 { q.textinput.Blur() }
func (q *QuestionInput) Focused() bool         { return q.textinput.Focused() }
func (q *QuestionInput) Reset()                { q.textinput.Reset() }
func (q *QuestionInput) Width() int            { return q.width }

// SetWidth sets the overall width; the field takes what the label leaves.
func (q *QuestionInput) SetWidth(width int) {
	q.width = width
	fieldWidth := width - lipgloss.Width(q.label) - 6
	if fieldWidth < 20 {
		fieldWidth = 20
	}
	q.textinput.Width = fieldWidth
}
