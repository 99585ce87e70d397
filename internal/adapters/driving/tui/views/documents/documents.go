// Package documents provides the documents list view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragline/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// ErrNoDocumentService is reported when the view has no document service.
var ErrNoDocumentService = errors.New("document service not available")

// View lists ingested documents with their ingestion state.
type View struct {
	ctx       context.Context
	styles    *styles.Styles
	documents driving.DocumentService
	ingestion driving.IngestionService

	items        []driving.DocumentDetails
	selected     int
	scrollOffset int
	width        int
	height       int
	loading      bool
	err          error
	notice       string
}

// NewView creates a documents view. ingestion may be nil, which disables
// reingest.
func NewView(s *styles.Styles, documents driving.DocumentService, ingestion driving.IngestionService) *View {
	return &View{
		ctx:       context.Background(),
		styles:    s,
		documents: documents,
		ingestion: ingestion,
		height:    24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load returns a command that reloads the document list.
func (v *View) Load() tea.Cmd {
	v.loading = true
	v.notice = ""
	ctx, svc := v.ctx, v.documents
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Err: ErrNoDocumentService}
		}
		docs, err := svc.List(ctx)
		if err != nil {
			return messages.DocumentsLoaded{Err: err}
		}
		out := make([]driving.DocumentDetails, 0, len(docs))
		for i := range docs {
			details, err := svc.GetDetails(ctx, docs[i].ID)
			if err != nil {
				// Deleted between List and GetDetails.
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return messages.DocumentsLoaded{Err: err}
			}
			out = append(out, *details)
		}
		return messages.DocumentsLoaded{Documents: out}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.items = msg.Documents
			if v.selected >= len(v.items) {
				v.selected = max(len(v.items)-1, 0)
			}
			v.adjustScroll()
		}
	case messages.DocumentReingested:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		cmd := v.Load()
		v.notice = "Resubmitted " + msg.DocumentID
		return v, cmd
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.items)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "r":
		return v, v.reingestSelected()
	case "ctrl+r":
		return v, v.Load()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewAsk}
		}
	}
	return v, nil
}

func (v *View) reingestSelected() tea.Cmd {
	if v.ingestion == nil || v.selected >= len(v.items) {
		return nil
	}
	id := v.items[v.selected].ID
	ctx, svc := v.ctx, v.ingestion
	return func() tea.Msg {
		return messages.DocumentReingested{DocumentID: id, Err: svc.Reingest(ctx, id)}
	}
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// Title, column header, notice and status bar.
	return max(v.height-8, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.items))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
		return b.String()
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		return b.String()
	case len(v.items) == 0:
		b.WriteString(v.styles.Muted.Render("No documents ingested yet. Run `ragline ingest <file>`."))
		return b.String()
	}

	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  %-36s  %-10s  %7s  %s", "TITLE", "STATE", "CHUNKS", "ID")))
	b.WriteString("\n")

	visible := v.visibleItemCount()
	end := min(v.scrollOffset+visible, len(v.items))
	for i := v.scrollOffset; i < end; i++ {
		b.WriteString(v.renderRow(i, &v.items[i]))
		b.WriteString("\n")
	}
	if len(v.items) > visible {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.scrollOffset+1, end, len(v.items))))
		b.WriteString("\n")
	}
	if v.notice != "" {
		b.WriteString("\n")
		b.WriteString(v.styles.Success.Render(v.notice))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *View) renderRow(i int, d *driving.DocumentDetails) string {
	title := d.Title
	if title == "" {
		title = d.FileName
	}
	if r := []rune(title); len(r) > 36 {
		title = string(r[:33]) + "..."
	}
	chunks := fmt.Sprintf("%d/%d", d.EmbeddingCount, d.ChunkCount)
	row := fmt.Sprintf("%-36s  %-10s  %7s  %s", title, d.State, chunks, d.ID)

	if i == v.selected {
		return "> " + v.styles.Selected.Render(row)
	}
	return "  " + v.stateStyle(d.State).Render(row)
}

func (v *View) stateStyle(state domain.IngestionState) lipgloss.Style {
	switch state {
	case domain.IngestionIndexed:
		return v.styles.Normal
	case domain.IngestionFailed:
		return v.styles.Error
	default:
		return v.styles.Warning
	}
}

// Documents returns the loaded rows.
func (v *View) Documents() []driving.DocumentDetails {
	return v.items
}

// Selected returns the selected row index.
func (v *View) Selected() int {
	return v.selected
}

// Err returns the last load or action error.
func (v *View) Err() error {
	return v.err
}

// Count returns the number of loaded documents.
func (v *View) Count() int {
	return len(v.items)
}
