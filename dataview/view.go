// Package dataview ties a record kind's definition, the admin API client
// and a table engine together for one store scope. Loads are latest-wins:
// a load started later always supersedes an earlier one, whatever order
// their responses arrive in.
package dataview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoCodeAlone/storeadmin/action"
	"github.com/GoCodeAlone/storeadmin/catalog"
	"github.com/GoCodeAlone/storeadmin/cleanup"
	"github.com/GoCodeAlone/storeadmin/metrics"
	"github.com/GoCodeAlone/storeadmin/resource"
	"github.com/GoCodeAlone/storeadmin/table"
)

var (
	// ErrStale is returned by Load when a newer load or scope change
	// superseded it. Its response, if any, was discarded.
	ErrStale = errors.New("dataview: load superseded")
	// ErrUnknownRow is returned for a row key that is not loaded.
	ErrUnknownRow = errors.New("dataview: unknown row")
	// ErrNoScope is returned by Load before a scope is set.
	ErrNoScope = errors.New("dataview: no store scope set")
)

// Lister fetches the records of a kind. *resource.Client satisfies it.
type Lister interface {
	List(ctx context.Context, kind, scopeID string) ([]resource.Record, error)
}

// Sweeper retries pending asset deletions. *cleanup.Sweeper satisfies it.
type Sweeper interface {
	Sweep(ctx context.Context) (cleanup.SweepResult, error)
}

// Options configures a View.
type Options struct {
	PageSize int
	// Sweeper, when set, runs before every load.
	Sweeper Sweeper
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// View is the loaded table of one kind for the current store scope. It is
// safe for concurrent use.
type View[R any] struct {
	def     *catalog.Definition[R]
	lister  Lister
	menu    *action.Menu[R]
	sweeper Sweeper
	logger  *slog.Logger
	metrics *metrics.Collector

	mu      sync.Mutex
	engine  *table.Engine[R]
	scope   string
	gen     uint64
	cancel  context.CancelFunc
	loaded  bool
	lastErr error
}

// New creates a View with no scope.
func New[R any](def *catalog.Definition[R], lister Lister, menu *action.Menu[R], opts Options) (*View[R], error) {
	engine, err := def.NewEngine(opts.PageSize)
	if err != nil {
		return nil, fmt.Errorf("dataview: %s: %w", def.Kind, err)
	}
	v := &View[R]{
		def:     def,
		lister:  lister,
		menu:    menu,
		sweeper: opts.Sweeper,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		engine:  engine,
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v, nil
}

// Kind returns the record kind.
func (v *View[R]) Kind() string { return v.def.Kind }

// Title returns the display heading.
func (v *View[R]) Title() string { return v.def.Heading }

// Items lists the row action menu entries.
func (v *View[R]) Items() []action.Item { return v.menu.Items() }

// Scope returns the current store id.
func (v *View[R]) Scope() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scope
}

// SetScope switches to another store. Rows of the previous store are
// dropped and any load in flight for it is cancelled and will be
// discarded. The caller starts the next Load.
func (v *View[R]) SetScope(scopeID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scope = scopeID
	v.gen++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.engine.SetRows(nil)
	v.loaded = false
	v.lastErr = nil
}

// Load fetches the rows of the current scope. When a newer Load or
// SetScope happens before the response arrives, the response is
// discarded and ErrStale is returned. On failure the previous rows stay.
func (v *View[R]) Load(ctx context.Context) error {
	v.mu.Lock()
	scope := v.scope
	if scope == "" {
		v.mu.Unlock()
		return ErrNoScope
	}
	v.gen++
	gen := v.gen
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()
	defer cancel()

	v.sweep(ctx)
	recs, err := v.lister.List(ctx, v.def.Kind, scope)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		v.metrics.RecordStaleLoad(v.def.Kind)
		v.logger.Debug("Discarded stale load", "kind", v.def.Kind, "store", scope)
		return ErrStale
	}
	v.cancel = nil
	if err != nil {
		v.lastErr = err
		v.logger.Error("Error fetching records", "kind", v.def.Kind, "store", scope, "error", err)
		return err
	}
	v.engine.SetRows(v.def.MapAll(recs))
	v.loaded = true
	v.lastErr = nil
	return nil
}

func (v *View[R]) sweep(ctx context.Context) {
	if v.sweeper == nil {
		return
	}
	res, err := v.sweeper.Sweep(ctx)
	if err != nil {
		v.logger.Warn("Pending asset sweep failed", "error", err)
		return
	}
	if res.Removed > 0 || res.Failed > 0 {
		v.logger.Info("Swept pending assets", "removed", res.Removed, "failed", res.Failed)
	}
}

// Loaded reports whether rows for the current scope have arrived.
func (v *View[R]) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Err returns the error of the last applied load.
func (v *View[R]) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// Rows returns the loaded rows in fetch order.
func (v *View[R]) Rows() []R {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]R(nil), v.engine.Rows()...)
}

// Snapshot renders the current page.
func (v *View[R]) Snapshot() table.View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.engine.View()
}

// Headers describes every column, hidden ones included.
func (v *View[R]) Headers() []table.Header {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.engine.Headers()
}

// Do runs fn with exclusive access to the table state.
func (v *View[R]) Do(fn func(table.Controller)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(v.engine)
}

func (v *View[R]) row(key string) (R, string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.engine.Row(key)
	if !ok {
		return r, "", fmt.Errorf("%w: %q", ErrUnknownRow, key)
	}
	return r, v.scope, nil
}

// Copy copies the row's copy field.
func (v *View[R]) Copy(key string) (string, error) {
	r, _, err := v.row(key)
	if err != nil {
		return "", err
	}
	return v.menu.Copy(r), nil
}

// EditTarget returns the edit page target of a row.
func (v *View[R]) EditTarget(key string) (string, error) {
	r, scope, err := v.row(key)
	if err != nil {
		return "", err
	}
	return v.menu.EditTarget(scope, r), nil
}

// Delete deletes a row and, once its record is gone, reloads the table.
// The returned error is the delete's; a failed reload is logged.
func (v *View[R]) Delete(ctx context.Context, key string) error {
	r, scope, err := v.row(key)
	if err != nil {
		return err
	}
	res, err := v.menu.Delete(ctx, scope, r)
	if res.RecordDeleted {
		if lerr := v.Load(ctx); lerr != nil && !errors.Is(lerr, ErrStale) {
			v.logger.Warn("Reload after delete failed", "kind", v.def.Kind, "store", scope, "error", lerr)
		}
	}
	return err
}
