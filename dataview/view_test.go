package dataview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/GoCodeAlone/storeadmin/asset"
	"github.com/GoCodeAlone/storeadmin/catalog"
	"github.com/GoCodeAlone/storeadmin/cleanup"
	"github.com/GoCodeAlone/storeadmin/metrics"
	"github.com/GoCodeAlone/storeadmin/notify"
	"github.com/GoCodeAlone/storeadmin/resource"
	"github.com/GoCodeAlone/storeadmin/table"
)

// fakeAPI serves records per store. A store with a gate blocks its list
// call until the gate is closed, ignoring cancellation, to model a late
// response.
type fakeAPI struct {
	mu      sync.Mutex
	records map[string][]resource.Record
	gates   map[string]chan struct{}
	started chan string
	listErr error
	delErr  error
	lists   int
	deletes []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		records: map[string][]resource.Record{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (f *fakeAPI) List(_ context.Context, kind, scopeID string) ([]resource.Record, error) {
	f.mu.Lock()
	f.lists++
	gate := f.gates[scopeID]
	recs := append([]resource.Record(nil), f.records[scopeID]...)
	err := f.listErr
	f.mu.Unlock()

	f.started <- scopeID
	if gate != nil {
		<-gate
	}
	return recs, err
}

func (f *fakeAPI) Delete(_ context.Context, kind, scopeID, recordID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return "", f.delErr
	}
	f.deletes = append(f.deletes, recordID)
	kept := f.records[scopeID][:0:0]
	for _, r := range f.records[scopeID] {
		if r.ID() != recordID {
			kept = append(kept, r)
		}
	}
	f.records[scopeID] = kept
	return "Billboard deleted", nil
}

func billboards(ids ...string) []resource.Record {
	out := make([]resource.Record, len(ids))
	for i, id := range ids {
		out[i] = resource.Record{"_id": id, "label": "label " + id, "publicId": "pub-" + id}
	}
	return out
}

func drain(ch chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func newBillboardPane(t *testing.T, api *fakeAPI, d Deps) Pane {
	t.Helper()
	d.Client = api
	p, err := Open(catalog.BillboardsKind, d)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return p
}

func rowKeys(v table.View) []string {
	out := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = r.Key
	}
	return out
}

func TestOpen_UnknownKind(t *testing.T) {
	if _, err := Open("sizes", Deps{Client: newFakeAPI()}); !errors.Is(err, catalog.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	api := newFakeAPI()
	api.records["s1"] = billboards("b1", "b2")
	p := newBillboardPane(t, api, Deps{})

	if err := p.Load(context.Background()); !errors.Is(err, ErrNoScope) {
		t.Fatalf("expected ErrNoScope, got %v", err)
	}

	p.SetScope("s1")
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	v := p.Snapshot()
	if got := rowKeys(v); len(got) != 2 || got[0] != "b1" {
		t.Errorf("unexpected rows %v", got)
	}
	if v.SelectionLabel() != "0 of 2 row(s) selected." {
		t.Errorf("unexpected label %q", v.SelectionLabel())
	}
	if !p.Loaded() || p.Scope() != "s1" {
		t.Error("expected loaded scope s1")
	}
}

func TestLoad_FailureKeepsRows(t *testing.T) {
	api := newFakeAPI()
	api.records["s1"] = billboards("b1")
	p := newBillboardPane(t, api, Deps{})
	p.SetScope("s1")
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	api.listErr = &resource.TransportError{Op: "list billboards", Err: errors.New("down")}
	if err := p.Load(context.Background()); !errors.Is(err, resource.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if got := rowKeys(p.Snapshot()); len(got) != 1 {
		t.Errorf("previous rows should stay, got %v", got)
	}
	if !errors.Is(p.Err(), resource.ErrTransport) {
		t.Errorf("expected last error to be kept, got %v", p.Err())
	}
}

func TestLatestScopeWins(t *testing.T) {
	api := newFakeAPI()
	api.records["A"] = billboards("a1")
	api.records["B"] = billboards("b1", "b2")
	gateA := make(chan struct{})
	api.gates["A"] = gateA
	m := metrics.New()
	p := newBillboardPane(t, api, Deps{Metrics: m})

	p.SetScope("A")
	errA := make(chan error, 1)
	go func() { errA <- p.Load(context.Background()) }()
	if got := <-api.started; got != "A" {
		t.Fatalf("expected load of A, got %s", got)
	}

	p.SetScope("B")
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load B: %v", err)
	}

	// A's response arrives after B's.
	close(gateA)
	select {
	case err := <-errA:
		if !errors.Is(err, ErrStale) {
			t.Fatalf("expected ErrStale for the superseded load, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("load of A never returned")
	}

	if got := rowKeys(p.Snapshot()); len(got) != 2 || got[0] != "b1" {
		t.Errorf("expected rows of B, got %v", got)
	}
	if p.Scope() != "B" {
		t.Errorf("expected scope B, got %q", p.Scope())
	}
	if got := testutil.ToFloat64(m.StaleLoads.WithLabelValues(catalog.BillboardsKind)); got != 1 {
		t.Errorf("expected 1 stale load, got %v", got)
	}
}

func TestSetScope_ClearsRows(t *testing.T) {
	api := newFakeAPI()
	api.records["s1"] = billboards("b1")
	p := newBillboardPane(t, api, Deps{})
	p.SetScope("s1")
	_ = p.Load(context.Background())

	p.SetScope("s2")
	v := p.Snapshot()
	if !v.Empty() || v.Placeholder != table.NoResults {
		t.Errorf("expected empty table after scope change, got %v", rowKeys(v))
	}
	if p.Loaded() {
		t.Error("new scope must not count as loaded")
	}
}

func TestDelete_Refetches(t *testing.T) {
	api := newFakeAPI()
	api.records["s1"] = billboards("b1", "b2")
	notes := notify.NewRecorder(0)
	var removed []string
	p := newBillboardPane(t, api, Deps{
		Notifier: notes,
		Assets: asset.RemoverFunc(func(_ context.Context, id string) error {
			removed = append(removed, id)
			return nil
		}),
	})
	p.SetScope("s1")
	_ = p.Load(context.Background())
	drain(api.started)

	if err := p.Delete(context.Background(), "b1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := rowKeys(p.Snapshot()); len(got) != 1 || got[0] != "b2" {
		t.Errorf("expected refetched rows [b2], got %v", got)
	}
	if len(removed) != 1 || removed[0] != "pub-b1" {
		t.Errorf("expected asset pub-b1 removed, got %v", removed)
	}
	if n, _ := notes.Last(); n.Title != "Success" || n.Description != "Billboard deleted" {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestDelete_PartialTracksAndSweepsBeforeNextLoad(t *testing.T) {
	api := newFakeAPI()
	api.records["s1"] = billboards("b1", "b2")
	notes := notify.NewRecorder(0)

	var mu sync.Mutex
	failing := true
	remover := asset.RemoverFunc(func(context.Context, string) error {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return errors.New("asset store unavailable")
		}
		return nil
	})
	ledger := cleanup.NewMemoryLedger()
	sweeper := cleanup.NewSweeper(ledger, remover)
	p := newBillboardPane(t, api, Deps{Notifier: notes, Assets: remover, Sweeper: sweeper})
	p.SetScope("s1")
	_ = p.Load(context.Background())

	err := p.Delete(context.Background(), "b1")
	if err == nil {
		t.Fatal("expected partial delete to report an error")
	}
	if n, _ := notes.Last(); n.Title != "Error" || n.Severity != notify.SeverityDestructive {
		t.Errorf("expected error notification, got %+v", n)
	}
	if got := rowKeys(p.Snapshot()); len(got) != 1 {
		t.Errorf("record was deleted, expected refetch to show 1 row, got %v", got)
	}

	pending, _ := ledger.List(context.Background())
	if len(pending) != 1 || pending[0].AssetID != "pub-b1" {
		t.Fatalf("expected pub-b1 pending, got %+v", pending)
	}

	mu.Lock()
	failing = false
	mu.Unlock()
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	pending, _ = ledger.List(context.Background())
	if len(pending) != 0 {
		t.Errorf("expected the sweep before load to clear the ledger, got %+v", pending)
	}
}

func TestDelete_FailureDoesNotRefetch(t *testing.T) {
	api := newFakeAPI()
	api.records["s1"] = billboards("b1")
	api.delErr = &resource.APIError{StatusCode: 401, Message: "Unauthenticated"}
	notes := notify.NewRecorder(0)
	p := newBillboardPane(t, api, Deps{Notifier: notes})
	p.SetScope("s1")
	_ = p.Load(context.Background())

	if err := p.Delete(context.Background(), "b1"); !errors.Is(err, resource.ErrAPI) {
		t.Fatalf("expected api error, got %v", err)
	}
	if api.lists != 1 {
		t.Errorf("expected no refetch after a failed delete, got %d lists", api.lists)
	}
	if n, _ := notes.Last(); n.Description != "Unauthenticated" {
		t.Errorf("expected server message, got %+v", n)
	}
}

func TestRowActions(t *testing.T) {
	api := newFakeAPI()
	api.records["s1"] = billboards("b1")
	p := newBillboardPane(t, api, Deps{})
	p.SetScope("s1")
	_ = p.Load(context.Background())

	target, err := p.EditTarget("b1")
	if err != nil {
		t.Fatalf("EditTarget: %v", err)
	}
	if want := "/manage-billboards/storeId?s1&id=b1&imageURL=&label=label+b1&publicId=pub-b1"; target != want {
		t.Errorf("expected %q, got %q", want, target)
	}
	if _, err := p.Copy("missing"); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("expected ErrUnknownRow, got %v", err)
	}
	if err := p.Delete(context.Background(), "missing"); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("expected ErrUnknownRow, got %v", err)
	}
}

func TestDo(t *testing.T) {
	api := newFakeAPI()
	api.records["s1"] = billboards("b1", "b2", "b3")
	p := newBillboardPane(t, api, Deps{})
	p.SetScope("s1")
	_ = p.Load(context.Background())

	p.Do(func(c table.Controller) {
		c.SetFilter("b2")
		c.ToggleAll()
	})
	if got := p.Snapshot().SelectionLabel(); got != "1 of 1 row(s) selected." {
		t.Errorf("unexpected label %q", got)
	}
	if hs := p.Headers(); len(hs) != 3 {
		t.Errorf("expected 3 headers, got %d", len(hs))
	}
}
