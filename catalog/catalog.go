// Package catalog defines the record kinds the console manages: their row
// types, the mapping from raw API records to rows, the table columns and
// the row actions.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/GoCodeAlone/storeadmin/action"
	"github.com/GoCodeAlone/storeadmin/resource"
	"github.com/GoCodeAlone/storeadmin/table"
)

// ErrUnknownKind is returned by Lookup for a kind with no definition.
var ErrUnknownKind = errors.New("unknown record kind")

// DateLayout renders creation dates as a short en-US date.
const DateLayout = "1/2/2006"

// FilterPlaceholder is the prompt of the filter input.
const FilterPlaceholder = "Search"

// Kind is the row-type independent view of a Definition.
type Kind interface {
	Name() string
	Title() string
}

// Definition bundles everything needed to show and act on one kind.
type Definition[R any] struct {
	Kind         string
	Heading      string
	Columns      []table.Column[R]
	FilterColumn string
	Key          func(R) string
	Map          func(resource.Record) R
	Actions      action.Descriptor[R]
}

// Name returns the API resource name, e.g. "billboards".
func (d *Definition[R]) Name() string { return d.Kind }

// Title returns the display heading.
func (d *Definition[R]) Title() string { return d.Heading }

// MapAll maps records to rows, one row per record, in order.
func (d *Definition[R]) MapAll(records []resource.Record) []R {
	rows := make([]R, len(records))
	for i, rec := range records {
		rows[i] = d.Map(rec)
	}
	return rows
}

// NewEngine creates a table engine over this kind's columns.
func (d *Definition[R]) NewEngine(pageSize int) (*table.Engine[R], error) {
	return table.New(d.Columns, table.Options[R]{
		Key:          d.Key,
		FilterColumn: d.FilterColumn,
		PageSize:     pageSize,
	})
}

var registry = map[string]Kind{}

func register(k Kind) {
	if _, dup := registry[k.Name()]; dup {
		panic(fmt.Sprintf("catalog: kind %q registered twice", k.Name()))
	}
	registry[k.Name()] = k
}

// Lookup returns the definition of a kind. The concrete type is
// *Definition[Billboard] or *Definition[Color].
func Lookup(kind string) (Kind, error) {
	k, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("catalog: %q: %w", kind, ErrUnknownKind)
	}
	return k, nil
}

// Kinds returns the registered kind names in order.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// createdAt parses the record's creation time. A missing or unparsable
// value yields a blank date and the zero time.
func createdAt(r resource.Record) (string, time.Time) {
	t, ok := r.Time("createdAt")
	if !ok {
		return "", time.Time{}
	}
	return t.Local().Format(DateLayout), t
}

func actionsColumn[R any]() table.Column[R] {
	return table.Column[R]{
		ID:            table.ActionsColumn,
		AlwaysVisible: true,
		Cell:          func(R) string { return "..." },
	}
}
