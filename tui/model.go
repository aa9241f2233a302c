// Package tui is the interactive terminal console: one tab per record
// kind, each showing the current page of its table with row actions.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GoCodeAlone/storeadmin/dataview"
	"github.com/GoCodeAlone/storeadmin/notify"
	"github.com/GoCodeAlone/storeadmin/resource"
	tbl "github.com/GoCodeAlone/storeadmin/table"
)

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeScope
)

const maxCellWidth = 40

// loadedMsg reports a finished load; scope identifies which store it was for.
type loadedMsg struct {
	kind  string
	scope string
	err   error
}

// deletedMsg reports a finished delete.
type deletedMsg struct {
	kind string
	err  error
}

// Options configures a Model.
type Options struct {
	// Panes are the tabs, in order. At least one is required.
	Panes []dataview.Pane
	// Notes holds the notifications shown in the status area.
	Notes   *notify.Recorder
	Context context.Context
	Logger  *slog.Logger
}

// Model is the Bubble Tea model of the console.
type Model struct {
	panes  []dataview.Pane
	active int
	focus  int
	mode   mode

	grid   table.Model
	filter textinput.Model
	scope  textinput.Model

	notes   *notify.Recorder
	ctx     context.Context
	logger  *slog.Logger
	styles  styles
	snap    tbl.View
	status  string
	loading bool
	width   int
}

// New creates a Model.
func New(opts Options) (*Model, error) {
	if len(opts.Panes) == 0 {
		return nil, errors.New("tui: at least one pane is required")
	}
	m := &Model{
		panes:  opts.Panes,
		notes:  opts.Notes,
		ctx:    opts.Context,
		logger: opts.Logger,
		styles: defaultStyles(),
	}
	if m.notes == nil {
		m.notes = notify.NewRecorder(0)
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	km := table.DefaultKeyMap()
	km.PageUp.SetKeys("pgup")
	km.PageDown.SetKeys("pgdown")
	km.HalfPageUp.SetKeys("ctrl+u")
	km.HalfPageDown.SetKeys("ctrl+d")
	km.GotoTop.SetKeys("home")
	km.GotoBottom.SetKeys("end")
	m.grid = table.New(
		table.WithFocused(true),
		table.WithHeight(tbl.DefaultPageSize+1),
		table.WithKeyMap(km),
	)
	m.grid.SetStyles(table.Styles{
		Header:   m.styles.header,
		Cell:     m.styles.cell,
		Selected: m.styles.cursor,
	})

	m.filter = textinput.New()
	m.filter.Prompt = "Filter: "
	m.filter.Placeholder = "Search"
	m.scope = textinput.New()
	m.scope.Prompt = "Store id: "

	m.refresh()
	return m, nil
}

func (m *Model) pane() dataview.Pane { return m.panes[m.active] }

// Init starts the first load.
func (m *Model) Init() tea.Cmd {
	if m.pane().Scope() == "" {
		m.status = "Press S to choose a store."
		return nil
	}
	return m.load(m.pane())
}

func (m *Model) load(p dataview.Pane) tea.Cmd {
	ctx, kind, scope := m.ctx, p.Kind(), p.Scope()
	if p == m.pane() {
		m.loading = true
	}
	return func() tea.Msg {
		return loadedMsg{kind: kind, scope: scope, err: p.Load(ctx)}
	}
}

func (m *Model) paneByKind(kind string) dataview.Pane {
	for _, p := range m.panes {
		if p.Kind() == kind {
			return p
		}
	}
	return nil
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.refresh()
		return m, nil

	case loadedMsg:
		p := m.paneByKind(msg.kind)
		if p == nil || errors.Is(msg.err, dataview.ErrStale) || msg.scope != p.Scope() {
			return m, nil
		}
		if p == m.pane() {
			m.loading = false
		}
		if msg.err != nil {
			m.status = fmt.Sprintf("Failed to load %s: %s", msg.kind, resource.UserMessage(msg.err, "request failed"))
		}
		m.refresh()
		return m, nil

	case deletedMsg:
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeFilter:
			return m.updateFilter(msg)
		case modeScope:
			return m.updateScope(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.pane()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.mode = modeFilter
		m.filter.SetValue(m.snap.Filter)
		m.filter.CursorEnd()
		return m, m.filter.Focus()

	case "S":
		m.mode = modeScope
		m.scope.SetValue(p.Scope())
		m.scope.CursorEnd()
		return m, m.scope.Focus()

	case "left", "h":
		if m.focus > 0 {
			m.focus--
		}
	case "right", "l":
		if m.focus < len(p.Headers())-1 {
			m.focus++
		}

	case "s":
		h, ok := m.focused()
		if !ok {
			break
		}
		var err error
		p.Do(func(c tbl.Controller) { _, err = c.ToggleSort(h.ID) })
		m.setErr(err)

	case "c":
		h, ok := m.focused()
		if !ok {
			break
		}
		var err error
		p.Do(func(c tbl.Controller) { err = c.ToggleVisible(h.ID) })
		m.setErr(err)

	case "a":
		p.Do(func(c tbl.Controller) { c.ShowAll() })

	case " ", "space":
		if key, ok := m.cursorKey(); ok {
			p.Do(func(c tbl.Controller) { c.ToggleSelected(key) })
		}
	case "A":
		p.Do(func(c tbl.Controller) { c.ToggleAll() })

	case "n":
		var moved bool
		p.Do(func(c tbl.Controller) { moved = c.NextPage() })
		if moved {
			m.grid.SetCursor(0)
		}
	case "p":
		var moved bool
		p.Do(func(c tbl.Controller) { moved = c.PreviousPage() })
		if moved {
			m.grid.SetCursor(0)
		}

	case "y":
		if key, ok := m.cursorKey(); ok {
			_, err := p.Copy(key)
			m.setErr(err)
		}
	case "e":
		if key, ok := m.cursorKey(); ok {
			target, err := p.EditTarget(key)
			if err == nil {
				m.status = "Edit: " + target
			}
			m.setErr(err)
		}
	case "d":
		key, ok := m.cursorKey()
		if !ok {
			break
		}
		ctx, kind := m.ctx, p.Kind()
		m.status = ""
		return m, func() tea.Msg {
			return deletedMsg{kind: kind, err: p.Delete(ctx, key)}
		}

	case "r":
		if p.Scope() == "" {
			m.status = "Press S to choose a store."
			break
		}
		m.status = ""
		return m, m.load(p)

	case "tab":
		m.active = (m.active + 1) % len(m.panes)
		m.focus = 0
		m.status = ""
		m.grid.SetCursor(0)
		m.refresh()
		if np := m.pane(); !np.Loaded() && np.Scope() != "" {
			return m, m.load(np)
		}
		return m, nil

	default:
		var cmd tea.Cmd
		m.grid, cmd = m.grid.Update(msg)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = modeBrowse
		m.filter.Blur()
		return m, nil
	case "esc":
		m.mode = modeBrowse
		m.filter.Blur()
		m.filter.SetValue("")
		m.pane().Do(func(c tbl.Controller) { c.SetFilter("") })
		m.refresh()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	value := m.filter.Value()
	m.pane().Do(func(c tbl.Controller) { c.SetFilter(value) })
	m.grid.SetCursor(0)
	m.refresh()
	return m, cmd
}

func (m *Model) updateScope(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = modeBrowse
		m.scope.Blur()
		id := strings.TrimSpace(m.scope.Value())
		if id == "" || id == m.pane().Scope() {
			return m, nil
		}
		for _, p := range m.panes {
			p.SetScope(id)
		}
		m.status = ""
		m.grid.SetCursor(0)
		m.refresh()
		return m, m.load(m.pane())
	case "esc":
		m.mode = modeBrowse
		m.scope.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.scope, cmd = m.scope.Update(msg)
	return m, cmd
}

func (m *Model) setErr(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, tbl.ErrNotSortable):
		m.status = "This column cannot be sorted."
	case errors.Is(err, tbl.ErrNotHideable):
		m.status = "This column cannot be hidden."
	default:
		m.status = err.Error()
	}
}

func (m *Model) focused() (tbl.Header, bool) {
	hs := m.pane().Headers()
	if m.focus < 0 || m.focus >= len(hs) {
		return tbl.Header{}, false
	}
	return hs[m.focus], true
}

func (m *Model) cursorKey() (string, bool) {
	i := m.grid.Cursor()
	if i < 0 || i >= len(m.snap.Rows) {
		return "", false
	}
	return m.snap.Rows[i].Key, true
}

// refresh copies the active pane's current page into the grid.
func (m *Model) refresh() {
	m.snap = m.pane().Snapshot()

	cols := make([]table.Column, 0, len(m.snap.Headers)+1)
	cols = append(cols, table.Column{Title: "", Width: 3})
	for i, h := range m.snap.Headers {
		title := h.Title + sortGlyph(h)
		width := lipgloss.Width(title)
		for _, r := range m.snap.Rows {
			if w := lipgloss.Width(r.Cells[i]); w > width {
				width = w
			}
		}
		cols = append(cols, table.Column{Title: title, Width: min(max(width, 3), maxCellWidth)})
	}

	rows := make([]table.Row, 0, len(m.snap.Rows))
	for _, r := range m.snap.Rows {
		mark := "[ ]"
		if r.Selected {
			mark = "[x]"
		}
		rows = append(rows, append(table.Row{mark}, r.Cells...))
	}

	m.grid.SetRows(nil)
	m.grid.SetColumns(cols)
	m.grid.SetRows(rows)
	switch c := m.grid.Cursor(); {
	case len(rows) == 0:
	case c < 0:
		m.grid.SetCursor(0)
	case c >= len(rows):
		m.grid.SetCursor(len(rows) - 1)
	}
	if hs := m.pane().Headers(); m.focus >= len(hs) {
		m.focus = max(len(hs)-1, 0)
	}
}

func sortGlyph(h tbl.Header) string {
	if !h.Sortable {
		return ""
	}
	switch h.Sort {
	case tbl.Ascending:
		return " ↑"
	case tbl.Descending:
		return " ↓"
	default:
		return " ↕"
	}
}

// Run starts the console and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	opts.Context = ctx
	m, err := New(opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
