// Package action implements the per-row action menu: copy a field to the
// clipboard, build the edit target, and delete the record together with
// its externally stored asset. Every action reports its outcome through
// exactly one notification.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/GoCodeAlone/storeadmin/asset"
	"github.com/GoCodeAlone/storeadmin/cleanup"
	"github.com/GoCodeAlone/storeadmin/metrics"
	"github.com/GoCodeAlone/storeadmin/notify"
	"github.com/GoCodeAlone/storeadmin/observability/tracing"
	"github.com/GoCodeAlone/storeadmin/resource"
)

// Menu item ids.
const (
	ItemCopy   = "copy"
	ItemEdit   = "edit"
	ItemDelete = "delete"
)

// Notification titles.
const (
	TitleCopied  = "Copied"
	TitleSuccess = "Success"
	TitleError   = "Error"
)

// ErrPartial marks a delete whose record removal succeeded but whose
// asset removal failed.
var ErrPartial = errors.New("record deleted but asset removal failed")

// PartialError reports a delete that left an orphaned asset behind. The
// asset is tracked in the cleanup ledger when one is configured.
type PartialError struct {
	RecordID string
	AssetID  string
	Err      error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("action: record %s deleted but asset %s was not: %v", e.RecordID, e.AssetID, e.Err)
}

func (e *PartialError) Unwrap() []error { return []error{ErrPartial, e.Err} }

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(text string) error
}

// ClipboardFunc adapts a function to a Clipboard.
type ClipboardFunc func(text string) error

// WriteText calls f(text).
func (f ClipboardFunc) WriteText(text string) error { return f(text) }

// RecordDeleter deletes one record of a kind. *resource.Client satisfies it.
type RecordDeleter interface {
	Delete(ctx context.Context, kind, scopeID, recordID string) (string, error)
}

// Tracker records asset deletions that must be retried. *cleanup.Sweeper
// satisfies it.
type Tracker interface {
	Track(ctx context.Context, p cleanup.Pending, cause error) error
}

// Descriptor describes the actions of one record kind.
type Descriptor[R any] struct {
	Kind string
	// ID returns the record id sent to the delete endpoint.
	ID func(R) string

	CopyLabel string
	// CopyText returns the text placed on the clipboard.
	CopyText func(R) string
	// CopyDescription is the notification text after a copy.
	CopyDescription string

	EditLabel string
	// EditParams returns the query parameters handed to the edit page.
	EditParams func(R) map[string]string

	// AssetID returns the public id of the record's external asset. Nil
	// means the kind has no asset.
	AssetID func(R) string
	// DeleteFallback is shown when a delete fails without a server message.
	DeleteFallback string
}

// Item is one menu entry.
type Item struct {
	ID    string
	Label string
}

// Deps are the collaborators of a Menu. Only Records is required.
type Deps struct {
	Records   RecordDeleter
	Assets    asset.Remover
	Pending   Tracker
	Clipboard Clipboard
	Notifier  notify.Sink
	Tracer    *tracing.ActionTracer
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// Result is the outcome of a delete.
type Result struct {
	// RecordDeleted is true once the record itself is gone, even if the
	// asset step failed afterwards.
	RecordDeleted bool
	Message       string
}

// Menu performs row actions for one kind.
type Menu[R any] struct {
	desc Descriptor[R]
	deps Deps
}

// NewMenu creates a Menu.
func NewMenu[R any](desc Descriptor[R], deps Deps) *Menu[R] {
	if deps.Notifier == nil {
		deps.Notifier = notify.Multi(nil)
	}
	if deps.Clipboard == nil {
		deps.Clipboard = ClipboardFunc(func(string) error { return nil })
	}
	if deps.Tracer == nil {
		deps.Tracer = tracing.NewActionTracer(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if desc.EditLabel == "" {
		desc.EditLabel = "Update"
	}
	return &Menu[R]{desc: desc, deps: deps}
}

// Kind returns the record kind the menu acts on.
func (m *Menu[R]) Kind() string { return m.desc.Kind }

// Items lists the menu entries in display order.
func (m *Menu[R]) Items() []Item {
	return []Item{
		{ID: ItemCopy, Label: m.desc.CopyLabel},
		{ID: ItemEdit, Label: m.desc.EditLabel},
		{ID: ItemDelete, Label: "Delete"},
	}
}

// Copy places the row's copy field on the clipboard. Clipboard failures
// are logged and otherwise ignored; the copied notification is always sent.
func (m *Menu[R]) Copy(row R) string {
	var text string
	if m.desc.CopyText != nil {
		text = m.desc.CopyText(row)
	}
	if err := m.deps.Clipboard.WriteText(text); err != nil {
		m.deps.Logger.Debug("Clipboard write failed", "kind", m.desc.Kind, "error", err)
	}
	m.deps.Metrics.RecordAction(m.desc.Kind, ItemCopy, metrics.OutcomeSuccess)
	m.deps.Notifier.Notify(notify.Success(TitleCopied, m.desc.CopyDescription))
	return text
}

// EditTarget returns the navigation target of the edit page:
// /manage-{kind}/storeId?{scopeID}&{params}. Parameters are query-encoded
// in key order.
func (m *Menu[R]) EditTarget(scopeID string, row R) string {
	q := url.Values{}
	if m.desc.EditParams != nil {
		for k, v := range m.desc.EditParams(row) {
			q.Set(k, v)
		}
	}
	target := "/manage-" + m.desc.Kind + "/storeId?" + url.QueryEscape(scopeID)
	if enc := q.Encode(); enc != "" {
		target += "&" + enc
	}
	m.deps.Metrics.RecordAction(m.desc.Kind, ItemEdit, metrics.OutcomeSuccess)
	return target
}

// Delete removes the row's record and then its asset, in that order, and
// sends one notification. A failed asset removal after a successful record
// removal is tracked for retry and still reported as an error.
func (m *Menu[R]) Delete(ctx context.Context, scopeID string, row R) (Result, error) {
	ctx, span := m.deps.Tracer.StartAction(ctx, m.desc.Kind, ItemDelete, scopeID)
	res, err := m.delete(ctx, scopeID, row)
	tracing.End(span, err)

	m.deps.Metrics.RecordAction(m.desc.Kind, ItemDelete, deleteOutcome(err))
	if err != nil {
		m.deps.Logger.Warn("Delete failed", "kind", m.desc.Kind, "store", scopeID, "error", err)
		m.deps.Notifier.Notify(notify.Failure(TitleError, resource.UserMessage(err, m.desc.DeleteFallback)))
		return res, err
	}
	m.deps.Notifier.Notify(notify.Success(TitleSuccess, res.Message))
	return res, nil
}

func (m *Menu[R]) delete(ctx context.Context, scopeID string, row R) (Result, error) {
	if m.deps.Records == nil {
		return Result{}, errors.New("action: no record deleter configured")
	}
	var recordID string
	if m.desc.ID != nil {
		recordID = m.desc.ID(row)
	}

	stepCtx, step := m.deps.Tracer.StartStep(ctx, "record")
	msg, err := m.deps.Records.Delete(stepCtx, m.desc.Kind, scopeID, recordID)
	tracing.End(step, err)
	if err != nil {
		return Result{}, err
	}
	res := Result{RecordDeleted: true, Message: msg}

	if m.desc.AssetID == nil || m.deps.Assets == nil {
		return res, nil
	}
	publicID := m.desc.AssetID(row)
	if publicID == "" {
		m.deps.Logger.Warn("Record has no asset id, skipping asset removal", "kind", m.desc.Kind, "record", recordID)
		return res, nil
	}

	stepCtx, step = m.deps.Tracer.StartStep(ctx, "asset")
	err = m.deps.Assets.RemoveAsset(stepCtx, publicID)
	tracing.End(step, err)
	if err == nil {
		return res, nil
	}

	if m.deps.Pending != nil {
		p := cleanup.Pending{AssetID: publicID, Kind: m.desc.Kind, ScopeID: scopeID, RecordID: recordID}
		if terr := m.deps.Pending.Track(ctx, p, err); terr != nil {
			m.deps.Logger.Error("Failed to track pending asset", "asset", publicID, "error", terr)
		}
	}
	return res, &PartialError{RecordID: recordID, AssetID: publicID, Err: err}
}

func deleteOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrPartial):
		return metrics.OutcomePartial
	case errors.Is(err, resource.ErrTransport):
		return metrics.OutcomeTransport
	case errors.Is(err, resource.ErrAPI):
		return metrics.OutcomeAPI
	default:
		return metrics.OutcomeFailure
	}
}
