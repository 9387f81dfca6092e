// Package tui implements the optional interactive REPL spec.md §4's
// domain stack calls for: a single-line input backed by query history,
// running the same engine.DB.Execute path the one-shot CLI uses.
//
// Grounded on litebase-litebase/cli/cmd/sql.go's bubbletea model
// (textarea input, Up/Down history navigation, Esc-to-clear-then-quit),
// generalized from that file's placeholder JSON-stub result renderer to
// one that actually calls into this module's engine and meta-command
// handlers, and from an unbounded multiline textarea to a single
// command line matching spec.md §6's one-command-per-invocation model.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anvilcode/sqliteq/internal/applog"
	"github.com/anvilcode/sqliteq/internal/engine"
	"github.com/anvilcode/sqliteq/internal/sqlparse"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#cc3333"))
	headerStyle = lipgloss.NewStyle().Bold(true).
			Padding(0, 1).
			MarginTop(1).
			Background(lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#9333EA"})
)

type model struct {
	db           *engine.DB
	textarea     textarea.Model
	history      []string
	historyIndex int
	pending      string
	lastQuery    string
	lastOutput   []string
	lastErr      string
	width        int
}

// Run opens path and drives the interactive REPL until the user quits.
func Run(path string, logger *applog.Logger) error {
	db, err := engine.Open(path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	m := newModel(db)
	_, err = tea.NewProgram(m).Run()
	return err
}

func newModel(db *engine.DB) model {
	ti := textarea.New()
	ti.ShowLineNumbers = false
	ti.SetHeight(1)
	ti.Focus()
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.KeyMap.InsertNewline.SetEnabled(false)
	ti.SetPromptFunc(0, func(int) string {
		return promptStyle.Render("sqliteq") + " > "
	})

	return model{db: db, textarea: ti}
}

func (m model) Init() tea.Cmd { return textarea.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.textarea.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEsc:
			if len(m.lastOutput) > 0 || m.lastErr != "" {
				m.lastOutput = nil
				m.lastErr = ""
				return m, nil
			}
			return m, tea.Quit

		case tea.KeyUp:
			if m.historyIndex == len(m.history) {
				m.pending = m.textarea.Value()
			}
			if m.historyIndex > 0 {
				m.historyIndex--
				m.textarea.SetValue(m.history[m.historyIndex])
			}
			return m, nil

		case tea.KeyDown:
			if m.historyIndex < len(m.history) {
				m.historyIndex++
				if m.historyIndex == len(m.history) {
					m.textarea.SetValue(m.pending)
				} else {
					m.textarea.SetValue(m.history[m.historyIndex])
				}
				m.textarea.CursorEnd()
			}
			return m, nil

		case tea.KeyEnter:
			query := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if query == "" {
				return m, nil
			}

			m.history = append(m.history, query)
			m.historyIndex = len(m.history)
			m.pending = ""
			m.lastQuery = query
			m.lastOutput, m.lastErr = runQuery(m.db, query)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var sections []string

	if m.lastQuery != "" {
		sections = append(sections, lipgloss.NewStyle().Width(m.width).Render(m.lastQuery))
	}
	if m.lastErr != "" {
		sections = append(sections, errorStyle.Render(m.lastErr))
	} else if len(m.lastOutput) > 0 {
		header := headerStyle.Render(fmt.Sprintf("%d row(s)", len(m.lastOutput)))
		sections = append(sections, header, strings.Join(m.lastOutput, "\n"))
	}
	sections = append(sections, m.textarea.View())

	return strings.Join(sections, "\n")
}

// runQuery dispatches a meta-command or a SELECT through the same
// engine path the one-shot CLI uses, and formats its output the same
// way, so the REPL and cmd/sqliteq never diverge on semantics.
func runQuery(db *engine.DB, query string) (lines []string, errLine string) {
	stmt, err := sqlparse.Parse(query)
	if err != nil {
		return nil, err.Error()
	}

	switch stmt.Meta {
	case sqlparse.MetaDBInfo:
		info := db.Info()
		return []string{
			fmt.Sprintf("database page size: %d", info.PageSize),
			fmt.Sprintf("number of tables: %d", info.NumberOfTables),
		}, ""

	case sqlparse.MetaTables:
		return []string{strings.Join(db.TableNames(), " ")}, ""

	case sqlparse.MetaSchema:
		var out []string
		for _, sql := range db.SchemaSQL() {
			out = append(out, sql+";")
		}
		return out, ""
	}

	res, err := db.Execute(stmt.Select)
	if err != nil {
		return nil, err.Error()
	}
	out := make([]string, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = strings.Join(row, "|")
	}
	return out, ""
}
