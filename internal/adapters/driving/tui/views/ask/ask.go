// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// View takes a question, runs it through the query service and shows the
// answer above the contexts it was grounded on.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	contexts  *list.ContextList
	statusbar *status.Bar

	queryService driving.QueryService
	ctx          context.Context
	title        string
	options      driving.QueryOptions

	answer     *domain.Answer
	err        error
	asking     bool
	focusInput bool // true while typing, false while browsing an answer
	width      int
	height     int
}

// NewView creates an ask view.
func NewView(s *styles.Styles, km *keymap.KeyMap, queryService driving.QueryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:       s,
		keymap:       km,
		input:        input.NewQuestionInput(s),
		contexts:     list.NewContextList(s),
		statusbar:    status.NewBar(s, km),
		queryService: queryService,
		ctx:          context.Background(),
		focusInput:   true,
		width:        80,
		height:       24,
	}
}

// WithContext sets the context used for queries.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetTitle restricts retrieval to documents whose title contains title.
func (v *View) SetTitle(title string) {
	v.title = title
	if title == "" {
		v.input.SetLabel("Ask: ")
		return
	}
	v.input.SetLabel(fmt.Sprintf("Ask [%s]: ", title))
}

// SetOptions overrides retrieval depth for every question.
func (v *View) SetOptions(opts driving.QueryOptions) {
	v.options = opts
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.asking {
		return v, nil
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			return v, v.submit()
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	if msg.Type == tea.KeyEsc || keymap.Matches(msg.String(), v.keymap.NewQuestion) {
		return v, v.newQuestion()
	}

	var cmd tea.Cmd
	v.contexts, cmd = v.contexts.Update(msg)
	return v, cmd
}

// submit starts answering the typed question.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" {
		return nil
	}
	v.asking = true
	v.err = nil
	v.focusInput = false
	v.input.Blur()
	v.statusbar.SetState(status.StateAsking)
	return v.ask(messages.AskRequested{Query: question, Title: v.title, Options: v.options})
}

// ask returns a command that runs the query.
func (v *View) ask(req messages.AskRequested) tea.Cmd {
	ctx, svc := v.ctx, v.queryService
	return func() tea.Msg {
		if svc == nil {
			return messages.AnswerCompleted{Err: fmt.Errorf("query service not available")}
		}
		answer, err := svc.AskWithOptions(ctx, domain.Query{Text: req.Query, Title: req.Title}, req.Options)
		return messages.AnswerCompleted{Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerCompleted) {
	v.asking = false
	if msg.Err != nil {
		v.err = msg.Err
		v.answer = nil
		v.contexts.SetContexts(nil)
		v.statusbar.SetError(msg.Err)
		return
	}
	v.err = nil
	v.answer = msg.Answer
	v.contexts.SetContexts(msg.Answer.Contexts)
	v.statusbar.SetAnswer(len(msg.Answer.Contexts), msg.Answer.JudgeFailures, msg.Answer.Grounded())
}

func (v *View) newQuestion() tea.Cmd {
	v.focusInput = true
	v.answer = nil
	v.err = nil
	v.contexts.SetContexts(nil)
	v.input.Reset()
	v.statusbar.Clear()
	return v.input.Focus()
}

// SetDimensions sets the view size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.contexts.SetSize(width, max(height-12, 3))
}

// View renders the view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("ragline"))
	b.WriteString("\n\n")
	b.WriteString(v.input.View())
	b.WriteString("\n\n")

	switch {
	case v.asking:
		b.WriteString(v.styles.Muted.Render("Thinking..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.answer != nil:
		b.WriteString(v.renderAnswer())
	}

	body := b.String()
	bar := v.statusbar.View()
	gap := v.height - lipgloss.Height(body) - lipgloss.Height(bar)
	if gap < 1 {
		gap = 1
	}
	return body + strings.Repeat("\n", gap) + bar
}

func (v *View) renderAnswer() string {
	width := max(v.width-4, 20)
	box := v.styles.AnswerBox
	if !v.answer.Grounded() {
		box = v.styles.NoAnswerBox
	}

	var b strings.Builder
	b.WriteString(box.Width(width).Render(v.answer.Answer))
	if len(v.answer.Contexts) > 0 {
		b.WriteString("\n\n")
		b.WriteString(v.styles.Subtitle.Render("Contexts"))
		b.WriteString("\n")
		b.WriteString(v.contexts.View())
	}
	return b.String()
}

// Answer returns the current answer, or nil.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Asking reports whether a question is in flight.
func (v *View) Asking() bool {
	return v.asking
}

// InputFocused reports whether the question input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Input exposes the question input.
func (v *View) Input() *input.QuestionInput {
	return v.input
}

// Contexts exposes the context list.
func (v *View) Contexts() *list.ContextList {
	return v.contexts
}
