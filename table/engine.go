// Package table is an in-memory data table over a fully fetched row set:
// single-column tri-state sorting, one text filter on a designated column,
// column visibility, row selection and fixed-size pagination.
//
// An Engine holds view state only. Rows are replaced wholesale with
// SetRows and never mutated. Engines are not safe for concurrent use.
package table

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultPageSize is used when Options.PageSize is not positive.
const DefaultPageSize = 10

// ActionsColumn is the conventional id of the row action column.
const ActionsColumn = "actions"

// NoResults is the placeholder shown when the current page is empty.
const NoResults = "No results."

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotSortable   = errors.New("column is not sortable")
	ErrNotHideable   = errors.New("column cannot be hidden")
)

// Direction is a column's sort state.
type Direction int

const (
	Unsorted Direction = iota
	Ascending
	Descending
)

func (d Direction) String() string {
	switch d {
	case Unsorted:
		return "none"
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// next returns the following state in the unsorted -> asc -> desc cycle.
func (d Direction) next() Direction {
	switch d {
	case Unsorted:
		return Ascending
	case Ascending:
		return Descending
	default:
		return Unsorted
	}
}

// Column describes one table column over rows of type R.
type Column[R any] struct {
	ID     string
	Header string
	// Cell renders the display text.
	Cell func(R) string
	// Value is the raw value used for sorting. Nil sorts by Cell.
	Value    func(R) any
	Sortable bool
	// AlwaysVisible columns can never be hidden.
	AlwaysVisible bool
}

func (c Column[R]) cell(r R) string {
	if c.Cell == nil {
		return ""
	}
	return c.Cell(r)
}

func (c Column[R]) value(r R) any {
	if c.Value != nil {
		return c.Value(r)
	}
	return c.cell(r)
}

// Options configures an Engine.
type Options[R any] struct {
	// Key returns a row's identity, used for selection. A blank or
	// repeated key is replaced by the row's fetch position, "#<index>".
	Key func(R) string
	// FilterColumn is the id of the column the text filter applies to.
	FilterColumn string
	PageSize     int
}

// Engine computes the visible page of a row set.
type Engine[R any] struct {
	columns   []Column[R]
	index     map[string]int
	key       func(R) string
	filterCol string
	pageSize  int

	rows     []entry[R]
	sortCol  string
	sortDir  Direction
	filter   string
	hidden   map[string]bool
	selected map[string]bool
	page     int
}

// entry pairs a row with the key it was assigned by SetRows.
type entry[R any] struct {
	row R
	key string
}

// New creates an Engine.
func New[R any](columns []Column[R], opts Options[R]) (*Engine[R], error) {
	if opts.Key == nil {
		return nil, errors.New("table: a row key function is required")
	}
	e := &Engine[R]{
		columns:   columns,
		index:     make(map[string]int, len(columns)),
		key:       opts.Key,
		filterCol: opts.FilterColumn,
		pageSize:  opts.PageSize,
		hidden:    make(map[string]bool),
		selected:  make(map[string]bool),
	}
	if e.pageSize <= 0 {
		e.pageSize = DefaultPageSize
	}
	for i, c := range columns {
		if c.ID == "" {
			return nil, fmt.Errorf("table: column %d has no id", i)
		}
		if _, dup := e.index[c.ID]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", c.ID)
		}
		e.index[c.ID] = i
	}
	if e.filterCol != "" {
		if _, ok := e.index[e.filterCol]; !ok {
			return nil, fmt.Errorf("table: filter column %q: %w", e.filterCol, ErrUnknownColumn)
		}
	}
	return e, nil
}

// Columns returns the column descriptors in display order.
func (e *Engine[R]) Columns() []Column[R] { return e.columns }

// PageSize returns the fixed page size.
func (e *Engine[R]) PageSize() int { return e.pageSize }

// SetRows replaces the row set. Selection is cleared because it may name
// rows that no longer exist; sort, filter and visibility are kept and the
// page index is clamped to the new last page.
func (e *Engine[R]) SetRows(rows []R) {
	e.rows = make([]entry[R], len(rows))
	seen := make(map[string]bool, len(rows))
	for i, r := range rows {
		k := e.key(r)
		if k == "" || seen[k] {
			k = "#" + strconv.Itoa(i)
			for seen[k] {
				k += "#"
			}
		}
		seen[k] = true
		e.rows[i] = entry[R]{row: r, key: k}
	}
	clear(e.selected)
	e.clampPage()
}

// Rows returns the full, unfiltered row set in fetch order.
func (e *Engine[R]) Rows() []R { return rowsOf(e.rows) }

// Row returns the row with the given key.
func (e *Engine[R]) Row(key string) (R, bool) {
	for _, en := range e.rows {
		if en.key == key {
			return en.row, true
		}
	}
	var zero R
	return zero, false
}

// ToggleSort advances colID through unsorted -> ascending -> descending ->
// unsorted. Sorting a different column replaces the current sort and
// starts it at ascending.
func (e *Engine[R]) ToggleSort(colID string) (Direction, error) {
	col, err := e.column(colID)
	if err != nil {
		return Unsorted, err
	}
	if !col.Sortable {
		return Unsorted, fmt.Errorf("table: %q: %w", colID, ErrNotSortable)
	}
	dir := Ascending
	if e.sortCol == colID {
		dir = e.sortDir.next()
	}
	e.setSort(colID, dir)
	return dir, nil
}

// SetSort sets the sort explicitly. Unsorted clears it.
func (e *Engine[R]) SetSort(colID string, dir Direction) error {
	if dir == Unsorted {
		e.setSort("", Unsorted)
		return nil
	}
	col, err := e.column(colID)
	if err != nil {
		return err
	}
	if !col.Sortable {
		return fmt.Errorf("table: %q: %w", colID, ErrNotSortable)
	}
	e.setSort(colID, dir)
	return nil
}

func (e *Engine[R]) setSort(colID string, dir Direction) {
	if dir == Unsorted {
		colID = ""
	}
	e.sortCol, e.sortDir = colID, dir
}

// Sort returns the active sort column and direction.
func (e *Engine[R]) Sort() (string, Direction) { return e.sortCol, e.sortDir }

// SetFilter sets the text filter on the filter column. Empty text removes
// the filter. Any change moves back to the first page.
func (e *Engine[R]) SetFilter(text string) {
	if text == e.filter {
		return
	}
	e.filter = text
	e.page = 0
}

// Filter returns the active filter text.
func (e *Engine[R]) Filter() string { return e.filter }

// FilterColumn returns the id of the filterable column.
func (e *Engine[R]) FilterColumn() string { return e.filterCol }

// SetVisible shows or hides a column.
func (e *Engine[R]) SetVisible(colID string, visible bool) error {
	col, err := e.column(colID)
	if err != nil {
		return err
	}
	if col.AlwaysVisible {
		if visible {
			return nil
		}
		return fmt.Errorf("table: %q: %w", colID, ErrNotHideable)
	}
	if visible {
		delete(e.hidden, colID)
	} else {
		e.hidden[colID] = true
	}
	return nil
}

// ToggleVisible flips a hideable column's visibility.
func (e *Engine[R]) ToggleVisible(colID string) error {
	return e.SetVisible(colID, !e.Visible(colID))
}

// ShowAll makes every column visible.
func (e *Engine[R]) ShowAll() { clear(e.hidden) }

// Visible reports whether a column is shown.
func (e *Engine[R]) Visible(colID string) bool { return !e.hidden[colID] }

// Hideable returns the columns that can be hidden, in display order.
func (e *Engine[R]) Hideable() []Column[R] {
	var out []Column[R]
	for _, c := range e.columns {
		if !c.AlwaysVisible {
			out = append(out, c)
		}
	}
	return out
}

// VisibleColumns returns the shown columns in display order.
func (e *Engine[R]) VisibleColumns() []Column[R] {
	var out []Column[R]
	for _, c := range e.columns {
		if !e.hidden[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// SetSelected marks one row as selected or not.
func (e *Engine[R]) SetSelected(key string, selected bool) {
	if selected {
		e.selected[key] = true
	} else {
		delete(e.selected, key)
	}
}

// ToggleSelected flips one row's selection and returns the new state.
func (e *Engine[R]) ToggleSelected(key string) bool {
	sel := !e.selected[key]
	e.SetSelected(key, sel)
	return sel
}

// ToggleAll selects every filtered row, or clears the selection of the
// filtered rows when all of them are already selected.
func (e *Engine[R]) ToggleAll() {
	filtered := e.filtered()
	all := len(filtered) > 0
	for _, en := range filtered {
		if !e.selected[en.key] {
			all = false
			break
		}
	}
	for _, en := range filtered {
		e.SetSelected(en.key, !all)
	}
}

// IsSelected reports whether a row is selected.
func (e *Engine[R]) IsSelected(key string) bool { return e.selected[key] }

// SelectedKeys returns the selected rows that pass the filter, in view order.
func (e *Engine[R]) SelectedKeys() []string {
	var out []string
	for _, en := range e.filtered() {
		if e.selected[en.key] {
			out = append(out, en.key)
		}
	}
	return out
}

// Filtered returns every row that passes the filter, sorted.
func (e *Engine[R]) Filtered() []R { return rowsOf(e.filtered()) }

func (e *Engine[R]) filtered() []entry[R] {
	out := make([]entry[R], 0, len(e.rows))
	if e.filter == "" || e.filterCol == "" {
		out = append(out, e.rows...)
	} else {
		col := e.columns[e.index[e.filterCol]]
		fold := cases.Fold()
		needle := fold.String(e.filter)
		for _, en := range e.rows {
			if strings.Contains(fold.String(col.cell(en.row)), needle) {
				out = append(out, en)
			}
		}
	}
	if e.sortDir != Unsorted {
		col := e.columns[e.index[e.sortCol]]
		desc := e.sortDir == Descending
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(col.value(out[i].row), col.value(out[j].row))
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	return out
}

// Page returns the zero-based current page index.
func (e *Engine[R]) Page() int { return e.page }

// PageCount returns the number of pages, at least 1.
func (e *Engine[R]) PageCount() int {
	return pageCount(len(e.filtered()), e.pageSize)
}

// CanPrevious reports whether a previous page exists.
func (e *Engine[R]) CanPrevious() bool { return e.page > 0 }

// CanNext reports whether a next page exists.
func (e *Engine[R]) CanNext() bool { return e.page+1 < e.PageCount() }

// NextPage advances one page if possible.
func (e *Engine[R]) NextPage() bool {
	if !e.CanNext() {
		return false
	}
	e.page++
	return true
}

// PreviousPage goes back one page if possible.
func (e *Engine[R]) PreviousPage() bool {
	if !e.CanPrevious() {
		return false
	}
	e.page--
	return true
}

// PageRows returns the rows of the current page.
func (e *Engine[R]) PageRows() []R {
	return rowsOf(pageSlice(e.filtered(), e.page, e.pageSize))
}

func rowsOf[R any](entries []entry[R]) []R {
	out := make([]R, len(entries))
	for i, en := range entries {
		out[i] = en.row
	}
	return out
}

func (e *Engine[R]) clampPage() {
	if last := e.PageCount() - 1; e.page > last {
		e.page = last
	}
	if e.page < 0 {
		e.page = 0
	}
}

func (e *Engine[R]) column(id string) (Column[R], error) {
	i, ok := e.index[id]
	if !ok {
		return Column[R]{}, fmt.Errorf("table: %q: %w", id, ErrUnknownColumn)
	}
	return e.columns[i], nil
}

func pageCount(n, size int) int {
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

func pageSlice[R any](rows []R, page, size int) []R {
	start := page * size
	if start >= len(rows) {
		return nil
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
