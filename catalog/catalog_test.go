package catalog

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/GoCodeAlone/storeadmin/action"
	"github.com/GoCodeAlone/storeadmin/resource"
	"github.com/GoCodeAlone/storeadmin/table"
)

func TestMapBillboard(t *testing.T) {
	rec := resource.Record{
		"_id":       "b1",
		"label":     "Summer",
		"imageURL":  "https://img/1.png",
		"publicId":  "billboards/p1",
		"createdAt": "2024-03-05T12:00:00.000Z",
	}
	got := MapBillboard(rec)

	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	want := Billboard{
		ID:        "b1",
		Label:     "Summer",
		Date:      at.Local().Format(DateLayout),
		CreatedAt: at,
		ImageURL:  "https://img/1.png",
		PublicID:  "billboards/p1",
	}
	if got.ID != want.ID || got.Label != want.Label || got.Date != want.Date ||
		!got.CreatedAt.Equal(want.CreatedAt) || got.ImageURL != want.ImageURL || got.PublicID != want.PublicID {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestMapColor(t *testing.T) {
	rec := resource.Record{
		"_id":       "c1",
		"name":      "Red",
		"value":     "#ff0000",
		"category":  "warm",
		"createdAt": "2024-01-02T08:30:00Z",
	}
	got := MapColor(rec)
	if got.ID != "c1" || got.Name != "Red" || got.Value != "#ff0000" || got.Category != "warm" {
		t.Errorf("unexpected row %+v", got)
	}
	if want := time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC).Local().Format(DateLayout); got.Date != want {
		t.Errorf("expected date %q, got %q", want, got.Date)
	}
}

func TestMap_MissingAndBadFields(t *testing.T) {
	tests := []struct {
		name string
		rec  resource.Record
	}{
		{"empty", resource.Record{}},
		{"nil", nil},
		{"bad date", resource.Record{"_id": "x", "createdAt": "yesterday"}},
		{"wrong types", resource.Record{"_id": map[string]any{}, "label": []any{1}, "createdAt": 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := MapBillboard(tt.rec)
			if b.Label != "" || b.Date != "" || !b.CreatedAt.IsZero() {
				t.Errorf("expected blank billboard fields, got %+v", b)
			}
			c := MapColor(tt.rec)
			if c.Name != "" || c.Value != "" || c.Date != "" {
				t.Errorf("expected blank color fields, got %+v", c)
			}
		})
	}
}

func TestMapAll_OneRowPerRecord(t *testing.T) {
	recs := []resource.Record{
		{"_id": "a", "label": "A"},
		{},
		{"_id": "c", "label": "C", "createdAt": "not a date"},
	}
	rows := Billboards.MapAll(recs)
	if len(rows) != len(recs) {
		t.Fatalf("expected %d rows, got %d", len(recs), len(rows))
	}
	if rows[0].ID != "a" || rows[2].Label != "C" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestLookup(t *testing.T) {
	k, err := Lookup(BillboardsKind)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if _, ok := k.(*Definition[Billboard]); !ok || k.Title() != "Billboards" {
		t.Errorf("unexpected definition %T %q", k, k.Title())
	}
	if k, err := Lookup(ColorsKind); err != nil || k.Name() != ColorsKind {
		t.Errorf("Lookup colors: %v %v", k, err)
	}
	if _, err := Lookup("sizes"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if got := strings.Join(Kinds(), ","); got != "billboards,colors" {
		t.Errorf("unexpected kinds %q", got)
	}
}

func TestBillboardTable(t *testing.T) {
	e, err := Billboards.NewEngine(0)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.SetRows(Billboards.MapAll([]resource.Record{
		{"_id": "b2", "label": "Winter", "createdAt": "2024-02-01T12:00:00Z"},
		{"_id": "b1", "label": "Summer", "createdAt": "2024-01-01T12:00:00Z"},
	}))

	v := e.View()
	var ids []string
	for _, h := range v.Headers {
		ids = append(ids, h.ID)
	}
	if got := strings.Join(ids, ","); got != "Label,Date,actions" {
		t.Errorf("unexpected headers %q", got)
	}
	if err := e.SetVisible(table.ActionsColumn, false); !errors.Is(err, table.ErrNotHideable) {
		t.Errorf("actions column must not be hideable, got %v", err)
	}

	if _, err := e.ToggleSort("Date"); err != nil {
		t.Fatalf("ToggleSort: %v", err)
	}
	if rows := e.PageRows(); rows[0].ID != "b1" {
		t.Errorf("expected chronological order, got %+v", rows)
	}

	e.SetFilter("sum")
	if got := e.View().SelectionLabel(); got != "0 of 1 row(s) selected." {
		t.Errorf("unexpected label %q", got)
	}
	e.SetSelected("b1", true)
	if got := e.View().SelectionLabel(); got != "1 of 1 row(s) selected." {
		t.Errorf("unexpected label %q", got)
	}
}

func TestBillboardTable_RecordsWithoutID(t *testing.T) {
	e, err := Billboards.NewEngine(10)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.SetRows(Billboards.MapAll([]resource.Record{
		{"label": "A"},
		{"label": "B"},
		{"_id": "c"},
	}))

	v := e.View()
	if len(v.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(v.Rows))
	}
	e.ToggleSelected(v.Rows[0].Key)
	if got := e.View().SelectionLabel(); got != "1 of 3 row(s) selected." {
		t.Errorf("unexpected label %q", got)
	}
	if r, ok := e.Row(v.Rows[1].Key); !ok || r.Label != "B" {
		t.Errorf("expected row B for key %q, got %+v", v.Rows[1].Key, r)
	}
}

func TestColorTable(t *testing.T) {
	e, err := Colors.NewEngine(10)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.SetRows([]Color{{ID: "c1", Name: "Red", Value: "#ff0000", Category: "warm"}})
	v := e.View()
	if len(v.Headers) != 5 {
		t.Fatalf("expected 5 headers, got %d", len(v.Headers))
	}
	cells := v.Rows[0].Cells
	if cells[0] != "Red" || !strings.HasPrefix(cells[1], "#ff0000 ") || !strings.Contains(cells[1], "●") || cells[2] != "warm" {
		t.Errorf("unexpected cells %q", cells)
	}
	if _, err := e.ToggleSort("Categories"); !errors.Is(err, table.ErrNotSortable) {
		t.Errorf("categories must not be sortable, got %v", err)
	}
}

func TestActionDescriptors(t *testing.T) {
	m := action.NewMenu(Colors.Actions, action.Deps{})
	target := m.EditTarget("s1", Color{ID: "c1", Name: "Red", Value: "#ff0000", Category: "warm"})
	want := "/manage-colors/storeId?s1&category=warm&id=c1&name=Red&value=%23ff0000"
	if target != want {
		t.Errorf("expected %q, got %q", want, target)
	}
	if Colors.Actions.AssetID != nil {
		t.Error("colors have no external asset")
	}

	b := action.NewMenu(Billboards.Actions, action.Deps{})
	if got := b.Items()[0].Label; got != "Copy image" {
		t.Errorf("unexpected copy label %q", got)
	}
	if got := b.Copy(Billboard{ImageURL: "https://img/1.png"}); got != "https://img/1.png" {
		t.Errorf("billboards copy the image url, got %q", got)
	}
	if got := m.Copy(Color{ID: "c1"}); got != "c1" {
		t.Errorf("colors copy the id, got %q", got)
	}
}
