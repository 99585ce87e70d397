// Package status provides the status bar component for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/styles"
)

// State represents what the status bar reports.
type State string

const (
	StateReady     State = "ready"
	StateAsking    State = "asking"
	StateAnswered  State = "answered"
	StateDocuments State = "documents"
	StateError     State = "error"
	StateHelp      State = "help"
)

// Bar displays application status and keybinding hints.
type Bar struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	state         State
	message       string
	contextCount  int
	judgeFailures int
	grounded      bool
	width         int
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
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the bar is driven through its setters.
func (s *Bar) Update(tea.Msg) (*Bar, tea.Cmd) {
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateAsking:
		return s.styles.Muted.Render("Retrieving and judging context...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render("Error: " + s.message)
		}
		return s.styles.Error.Render("Error")
	case StateHelp:
		return s.styles.Normal.Render("Help")
	case StateDocuments:
		if s.message != "" {
			return s.styles.Normal.Render(s.message)
		}
		return s.styles.Normal.Render("Documents")
	case StateAnswered:
		return s.renderAnswered()
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) renderAnswered() string {
	if !s.grounded {
		return s.styles.Warning.Render("No grounded answer")
	}
	text := fmt.Sprintf("Answered from %d contexts", s.contextCount)
	if s.judgeFailures > 0 {
		return s.styles.Normal.Render(text) + s.styles.Warning.Render(
			fmt.Sprintf(" (%d unscored)", s.judgeFailures))
	}
	return s.styles.Success.Render(text)
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	switch s.state {
	case StateAnswered:
		bindings = s.keymap.AnswerHelp()
	case StateDocuments:
		bindings = s.keymap.DocumentsHelp()
	default:
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetAnswer switches to the answered state with the answer's summary.
func (s *Bar) SetAnswer(contexts, judgeFailures int, grounded bool) {
	s.state = StateAnswered
	s.contextCount = contexts
	s.judgeFailures = judgeFailures
	s.grounded = grounded
	s.message = ""
}

// SetError switches to the error state.
func (s *Bar) SetError(err error) {
	s.state = StateError
	s.message = ""
	if err != nil {
		s.message = err.Error()
	}
}

func (s *Bar) SetState(state State)      { s.state = state }
func (s *Bar) State() State              { return s.state }
func (s *Bar) SetMessage(message string) { s.message = message }
func (s *Bar) Message() string           { return s.message }
func (s *Bar) SetWidth(width int)        { s.width = width }
func (s *Bar) Width() int                { return s.width }

// Clear resets the status bar to its idle state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.contextCount = 0
	s.judgeFailures = 0
	s.grounded = false
}
