package catalog

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/GoCodeAlone/storeadmin/action"
	"github.com/GoCodeAlone/storeadmin/resource"
	"github.com/GoCodeAlone/storeadmin/table"
)

// ColorsKind is the API resource name of colors.
const ColorsKind = "colors"

// Color is the display row of a color record.
type Color struct {
	ID        string
	Name      string
	Value     string
	Category  string
	Date      string
	CreatedAt time.Time
}

// MapColor projects a color record onto its row.
func MapColor(r resource.Record) Color {
	date, at := createdAt(r)
	return Color{
		ID:        r.ID(),
		Name:      r.String("name"),
		Value:     r.String("value"),
		Category:  r.String("category"),
		Date:      date,
		CreatedAt: at,
	}
}

// Swatch renders a dot in the given color. Terminals without color
// support get a plain dot.
func Swatch(value string) string {
	if value == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(value)).Render("●")
}

// Colors is the color table definition.
var Colors = &Definition[Color]{
	Kind:    ColorsKind,
	Heading: "Colors",
	Columns: []table.Column[Color]{
		{ID: "Name", Header: "Name", Sortable: true, Cell: func(c Color) string { return c.Name }},
		{
			ID: "Value", Header: "Value",
			Cell: func(c Color) string {
				if c.Value == "" {
					return ""
				}
				return c.Value + " " + Swatch(c.Value)
			},
			Value: func(c Color) any { return c.Value },
		},
		{ID: "Categories", Header: "Categories", Cell: func(c Color) string { return c.Category }},
		{
			ID: "Date", Header: "Date", Sortable: true,
			Cell:  func(c Color) string { return c.Date },
			Value: func(c Color) any { return c.CreatedAt },
		},
		actionsColumn[Color](),
	},
	FilterColumn: "Name",
	Key:          func(c Color) string { return c.ID },
	Map:          MapColor,
	Actions: action.Descriptor[Color]{
		Kind:            ColorsKind,
		ID:              func(c Color) string { return c.ID },
		CopyLabel:       "Copy Id",
		CopyText:        func(c Color) string { return c.ID },
		CopyDescription: "Id copied",
		EditParams: func(c Color) map[string]string {
			return map[string]string{
				"id":       c.ID,
				"name":     c.Name,
				"value":    c.Value,
				"category": c.Category,
			}
		},
		DeleteFallback: "Error deleting color",
	},
}

func init() { register(Colors) }
