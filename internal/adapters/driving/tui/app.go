package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// Options configures the ask view.
type Options struct {
	// Title restricts retrieval to matching document titles.
	Title string

	// Query overrides retrieval depth.
	Query driving.QueryOptions
}

// App is the TUI model. It implements tea.Model.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	askView       *ask.View
	documentsView *documents.View
	documentsBar  *status.Bar

	currentView  messages.ViewType
	previousView messages.ViewType

	width  int
	height int
	ready  bool
	err    error
}

// NewApp creates the TUI application.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	bar := status.NewBar(s, km)
	bar.SetState(status.StateDocuments)

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		help:          help.New(),
		askView:       ask.NewView(s, km, ports.Query),
		documentsView: documents.NewView(s, ports.Document, ports.Ingestion),
		documentsBar:  bar,
		currentView:   messages.ViewAsk,
		width:         80,
		height:        24,
	}, nil
}

// WithContext sets the context used for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	return a
}

// WithOptions applies ask view options.
func (a *App) WithOptions(opts Options) *App {
	a.askView.SetTitle(opts.Title)
	a.askView.SetOptions(opts.Query)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("ragline"),
		a.askView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		a.documentsView, _ = a.documentsView.Update(msg)
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		a.err = msg.Err
		a.askView, cmd = a.askView.Update(msg)
		return a, cmd

	case messages.DocumentsLoaded:
		a.err = msg.Err
		a.documentsView, cmd = a.documentsView.Update(msg)
		a.updateDocumentsBar()
		return a, cmd

	case messages.DocumentReingested:
		a.documentsView, cmd = a.documentsView.Update(msg)
		a.updateDocumentsBar()
		return a, cmd

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.askView, cmd = a.askView.Update(msg)
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Cursor blink and other component ticks.
	if a.currentView == messages.ViewAsk {
		a.askView, cmd = a.askView.Update(msg)
	}
	return a, cmd
}

func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	typing := a.currentView == messages.ViewAsk && a.askView.InputFocused()

	switch {
	case keymap.Matches(msg.String(), a.keymap.Documents) && a.ports.Document != nil:
		if a.currentView == messages.ViewDocuments {
			return a, a.switchTo(messages.ViewAsk)
		}
		return a, a.switchTo(messages.ViewDocuments)
	case typing:
		// Printable keys belong to the question input.
	case msg.String() == "q":
		return a, tea.Quit
	case keymap.Matches(msg.String(), a.keymap.Help) && a.currentView != messages.ViewHelp:
		return a, a.switchTo(messages.ViewHelp)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewHelp:
		if msg.Type == tea.KeyEsc || keymap.Matches(msg.String(), a.keymap.Help) {
			return a, a.switchTo(a.previousView)
		}
	}
	return a, cmd
}

func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	if view == a.currentView {
		return nil
	}
	a.previousView = a.currentView
	a.currentView = view

	switch view {
	case messages.ViewDocuments:
		return a.documentsView.Load()
	case messages.ViewAsk:
		if a.askView.InputFocused() {
			return a.askView.Input().Focus()
		}
	case messages.ViewHelp:
	}
	return nil
}

func (a *App) updateDocumentsBar() {
	if err := a.documentsView.Err(); err != nil {
		a.documentsBar.SetError(err)
		return
	}
	a.documentsBar.SetState(status.StateDocuments)
	n := a.documentsView.Count()
	if n == 1 {
		a.documentsBar.SetMessage("1 document")
		return
	}
	a.documentsBar.SetMessage(fmt.Sprintf("%d documents", n))
}

// View implements tea.Model.
func (a *App) View() string {
	switch a.currentView {
	case messages.ViewDocuments:
		return a.documentsView.View() + "\n\n" + a.documentsBar.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.askView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + "\n\n" +
		a.help.FullHelpView(a.keymap.FullHelp()) + "\n\n" +
		a.styles.Muted.Render("Questions are answered only from ingested documents. "+
			"When nothing relevant is found the answer says so.") + "\n\n" +
		a.styles.Help.Render("[esc] back")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// AskView exposes the ask view.
func (a *App) AskView() *ask.View {
	return a.askView
}

// DocumentsView exposes the documents view.
func (a *App) DocumentsView() *documents.View {
	return a.documentsView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its terminal size.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.askView.SetDimensions(width, height)
	a.documentsBar.SetWidth(width)
	a.help.Width = width
}
