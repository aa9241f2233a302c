package table

import "fmt"

// Header describes one column heading and its sort state.
type Header struct {
	ID       string
	Title    string
	Sortable bool
	Hideable bool
	Sort     Direction
}

// Row is one rendered row of the current page.
type Row struct {
	Key      string
	Cells    []string
	Selected bool
}

// View is a snapshot of what the table shows.
type View struct {
	Headers []Header
	Rows    []Row
	// Placeholder is set when the page has no rows. It spans Colspan
	// columns, the number of visible columns.
	Placeholder string
	Colspan     int

	Filter        string
	FilteredCount int
	SelectedCount int
	TotalCount    int

	Page        int
	PageCount   int
	CanPrevious bool
	CanNext     bool
}

// Empty reports whether the page has no rows.
func (v View) Empty() bool { return len(v.Rows) == 0 }

// SelectionLabel reads "N of M row(s) selected." over the filtered rows.
func (v View) SelectionLabel() string {
	return SelectionLabel(v.SelectedCount, v.FilteredCount)
}

// SelectionLabel formats the selection summary.
func SelectionLabel(selected, filtered int) string {
	return fmt.Sprintf("%d of %d row(s) selected.", selected, filtered)
}

// View renders the current page.
func (e *Engine[R]) View() View {
	cols := e.VisibleColumns()
	filtered := e.filtered()

	v := View{
		Headers:       make([]Header, 0, len(cols)),
		Colspan:       len(cols),
		Filter:        e.filter,
		FilteredCount: len(filtered),
		TotalCount:    len(e.rows),
		Page:          e.page,
		PageCount:     pageCount(len(filtered), e.pageSize),
		CanPrevious:   e.page > 0,
	}
	v.CanNext = e.page+1 < v.PageCount

	for _, c := range cols {
		v.Headers = append(v.Headers, e.header(c))
	}
	for _, en := range filtered {
		if e.selected[en.key] {
			v.SelectedCount++
		}
	}
	for _, en := range pageSlice(filtered, e.page, e.pageSize) {
		row := Row{Key: en.key, Selected: e.selected[en.key], Cells: make([]string, len(cols))}
		for i, c := range cols {
			row.Cells[i] = c.cell(en.row)
		}
		v.Rows = append(v.Rows, row)
	}
	if len(v.Rows) == 0 {
		v.Placeholder = NoResults
	}
	return v
}

// Headers describes every column, hidden ones included, in display order.
func (e *Engine[R]) Headers() []Header {
	out := make([]Header, 0, len(e.columns))
	for _, c := range e.columns {
		out = append(out, e.header(c))
	}
	return out
}

func (e *Engine[R]) header(c Column[R]) Header {
	h := Header{ID: c.ID, Title: c.Header, Sortable: c.Sortable, Hideable: !c.AlwaysVisible}
	if c.ID == e.sortCol {
		h.Sort = e.sortDir
	}
	return h
}

// Controller is the row-type independent surface of an Engine, used by
// front ends that switch between tables of different row types.
type Controller interface {
	Headers() []Header
	ToggleSort(colID string) (Direction, error)
	SetSort(colID string, dir Direction) error
	SetFilter(text string)
	Filter() string
	FilterColumn() string
	SetVisible(colID string, visible bool) error
	ToggleVisible(colID string) error
	ShowAll()
	Visible(colID string) bool
	SetSelected(key string, selected bool)
	ToggleSelected(key string) bool
	ToggleAll()
	SelectedKeys() []string
	NextPage() bool
	PreviousPage() bool
	View() View
}

var _ Controller = (*Engine[struct{}])(nil)
