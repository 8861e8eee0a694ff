// Package tui provides an interactive terminal search view over the
// knowledge index: type a query, navigate ranked fragments, expand the
// parent paragraph of the selected one.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brokerhub/knowbot/internal/core/domain"
	"github.com/brokerhub/knowbot/internal/core/ports/driving"
)

const resultLimit = 10

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	sourceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	scoreStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	contextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(4)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// resultsMsg carries search results back into the update loop.
type resultsMsg struct {
	results []domain.RankedFragment
	err     error
}

// Model is the bubbletea model for the search view.
type Model struct {
	knowledge driving.KnowledgeService
	ctx       context.Context

	input   textinput.Model
	spinner spinner.Model

	results   []domain.RankedFragment
	selected  int
	expanded  bool
	searching bool
	searched  bool
	err       error

	width  int
	height int
}

// New creates the search view model.
func New(ctx context.Context, knowledge driving.KnowledgeService) Model {
	input := textinput.New()
	input.Placeholder = "Вопрос по базе знаний..."
	input.Focus()
	input.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		knowledge: knowledge,
		ctx:       ctx,
		input:     input,
		spinner:   sp,
		width:     80,
		height:    24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			if query := strings.TrimSpace(m.input.Value()); query != "" {
				m.searching = true
				m.err = nil
				m.expanded = false
				return m, tea.Batch(m.spinner.Tick, m.search(query))
			}
			return m, nil

		case "up", "ctrl+k":
			if m.selected > 0 {
				m.selected--
				m.expanded = false
			}
			return m, nil

		case "down", "ctrl+j":
			if m.selected < len(m.results)-1 {
				m.selected++
				m.expanded = false
			}
			return m, nil

		case "tab":
			if len(m.results) > 0 {
				m.expanded = !m.expanded
			}
			return m, nil
		}

	case resultsMsg:
		m.searching = false
		m.searched = true
		m.results = msg.results
		m.selected = 0
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if m.searching {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// search runs the query off the update loop.
func (m Model) search(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.knowledge.Search(m.ctx, query, resultLimit, domain.SearchFilters{})
		return resultsMsg{results: results, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("knowbot"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.searching:
		b.WriteString(m.spinner.View() + " поиск...\n")

	case m.err != nil:
		b.WriteString(errorStyle.Render("Ошибка: "+m.err.Error()) + "\n")

	case m.searched && len(m.results) == 0:
		b.WriteString("Ничего не найдено.\n")

	default:
		for i, r := range m.results {
			line := fmt.Sprintf("%s %s %s",
				sourceStyle.Render(r.Fragment.Source),
				scoreStyle.Render(fmt.Sprintf("(%.3f)", r.Score)),
				truncate(r.Fragment.Content, m.width-20),
			)
			if i == m.selected {
				line = selectedStyle.Render("> ") + line
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")

			if i == m.selected && m.expanded && r.WindowContent != "" {
				b.WriteString(contextStyle.Render(r.WindowContent) + "\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: искать · ↑/↓: выбор · tab: контекст · esc: выход"))
	return b.String()
}

func truncate(s string, n int) string {
	if n < 10 {
		n = 10
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// Run starts the TUI event loop.
func Run(ctx context.Context, knowledge driving.KnowledgeService) error {
	program := tea.NewProgram(New(ctx, knowledge), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
