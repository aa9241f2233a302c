package catalog

import (
	"time"

	"github.com/GoCodeAlone/storeadmin/action"
	"github.com/GoCodeAlone/storeadmin/resource"
	"github.com/GoCodeAlone/storeadmin/table"
)

// BillboardsKind is the API resource name of billboards.
const BillboardsKind = "billboards"

// Billboard is the display row of a billboard record.
type Billboard struct {
	ID        string
	Label     string
	Date      string
	CreatedAt time.Time
	ImageURL  string
	PublicID  string
}

// MapBillboard projects a billboard record onto its row.
func MapBillboard(r resource.Record) Billboard {
	date, at := createdAt(r)
	return Billboard{
		ID:        r.ID(),
		Label:     r.String("label"),
		Date:      date,
		CreatedAt: at,
		ImageURL:  r.String("imageURL"),
		PublicID:  r.String("publicId"),
	}
}

// Billboards is the billboard table definition.
var Billboards = &Definition[Billboard]{
	Kind:    BillboardsKind,
	Heading: "Billboards",
	Columns: []table.Column[Billboard]{
		{ID: "Label", Header: "Label", Sortable: true, Cell: func(b Billboard) string { return b.Label }},
		{
			ID: "Date", Header: "Date", Sortable: true,
			Cell:  func(b Billboard) string { return b.Date },
			Value: func(b Billboard) any { return b.CreatedAt },
		},
		actionsColumn[Billboard](),
	},
	FilterColumn: "Label",
	Key:          func(b Billboard) string { return b.ID },
	Map:          MapBillboard,
	Actions: action.Descriptor[Billboard]{
		Kind:            BillboardsKind,
		ID:              func(b Billboard) string { return b.ID },
		CopyLabel:       "Copy image",
		CopyText:        func(b Billboard) string { return b.ImageURL },
		CopyDescription: "Billboard image url copied",
		EditParams: func(b Billboard) map[string]string {
			return map[string]string{
				"imageURL": b.ImageURL,
				"label":    b.Label,
				"id":       b.ID,
				"publicId": b.PublicID,
			}
		},
		AssetID:        func(b Billboard) string { return b.PublicID },
		DeleteFallback: "Error deleting billboard",
	},
}

func init() { register(Billboards) }
