package dataview

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoCodeAlone/storeadmin/action"
	"github.com/GoCodeAlone/storeadmin/asset"
	"github.com/GoCodeAlone/storeadmin/catalog"
	"github.com/GoCodeAlone/storeadmin/cleanup"
	"github.com/GoCodeAlone/storeadmin/metrics"
	"github.com/GoCodeAlone/storeadmin/notify"
	"github.com/GoCodeAlone/storeadmin/observability/tracing"
	"github.com/GoCodeAlone/storeadmin/table"
)

// Pane is the row-type independent surface of a View.
type Pane interface {
	Kind() string
	Title() string
	Items() []action.Item
	Scope() string
	SetScope(scopeID string)
	Load(ctx context.Context) error
	Loaded() bool
	Err() error
	Snapshot() table.View
	Headers() []table.Header
	Do(fn func(table.Controller))
	Copy(key string) (string, error)
	EditTarget(key string) (string, error)
	Delete(ctx context.Context, key string) error
}

var (
	_ Pane = (*View[catalog.Billboard])(nil)
	_ Pane = (*View[catalog.Color])(nil)
)

// Client is the admin API surface a Pane needs.
type Client interface {
	Lister
	action.RecordDeleter
}

// Deps are the shared collaborators of every pane.
type Deps struct {
	Client    Client
	Assets    asset.Remover
	Sweeper   *cleanup.Sweeper
	Clipboard action.Clipboard
	Notifier  notify.Sink
	Tracer    *tracing.ActionTracer
	Metrics   *metrics.Collector
	Logger    *slog.Logger
	PageSize  int
}

// Open creates the pane of a registered kind.
func Open(kind string, d Deps) (Pane, error) {
	k, err := catalog.Lookup(kind)
	if err != nil {
		return nil, err
	}
	switch def := k.(type) {
	case *catalog.Definition[catalog.Billboard]:
		return build(def, d)
	case *catalog.Definition[catalog.Color]:
		return build(def, d)
	default:
		return nil, fmt.Errorf("dataview: no pane for kind %q", kind)
	}
}

func build[R any](def *catalog.Definition[R], d Deps) (*View[R], error) {
	ad := action.Deps{
		Records:   d.Client,
		Assets:    d.Assets,
		Clipboard: d.Clipboard,
		Notifier:  d.Notifier,
		Tracer:    d.Tracer,
		Metrics:   d.Metrics,
		Logger:    d.Logger,
	}
	opts := Options{PageSize: d.PageSize, Logger: d.Logger, Metrics: d.Metrics}
	if d.Sweeper != nil {
		ad.Pending = d.Sweeper
		opts.Sweeper = d.Sweeper
	}
	return New(def, d.Client, action.NewMenu(def.Actions, ad), opts)
}
