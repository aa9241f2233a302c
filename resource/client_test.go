package resource

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/GoCodeAlone/storeadmin/metrics"
)

func newTestClient(t *testing.T, h http.Handler, opts Options) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://x", "://bad"} {
		if _, err := New(Options{BaseURL: u}); err == nil {
			t.Errorf("expected error for base url %q", u)
		}
	}
}

func TestList(t *testing.T) {
	var gotPath, gotAuth, gotReqID string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		_, _ = io.WriteString(w, `{"data":[
			{"_id":"b1","label":"Summer","imageURL":"https://img/1.png","publicId":"p1","createdAt":"2024-03-05T10:00:00.000Z"},
			"not an object",
			{"_id":"b2","label":"Winter"}
		]}`)
	})
	m := metrics.New()
	c, _ := newTestClient(t, h, Options{Token: "tok", Metrics: m})

	recs, err := c.List(context.Background(), "billboards", "store 1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotPath != "/api/billboards/store%201" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotReqID == "" {
		t.Error("expected X-Request-ID header")
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records (malformed kept as blank), got %d", len(recs))
	}
	if recs[0].ID() != "b1" || recs[0].String("label") != "Summer" {
		t.Errorf("unexpected first record %+v", recs[0])
	}
	if recs[1].ID() != "" {
		t.Errorf("expected blank record for malformed element, got %+v", recs[1])
	}
	if _, ok := recs[2].Time("createdAt"); ok {
		t.Error("expected missing createdAt to be reported")
	}
	if got := testutil.ToFloat64(m.APIRequests.WithLabelValues("billboards", "list", metrics.OutcomeSuccess)); got != 1 {
		t.Errorf("expected 1 recorded list, got %v", got)
	}
}

type billboardDoc struct {
	ID    string `json:"_id"`
	Label string `json:"label"`
}

func TestListAs(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"_id":"b1","label":"A"},{"_id":7}]}`)
	})
	c, _ := newTestClient(t, h, Options{})

	docs, err := ListAs[billboardDoc](context.Background(), c, "billboards", "s1")
	if err != nil {
		t.Fatalf("ListAs: %v", err)
	}
	if len(docs) != 2 || docs[0].Label != "A" || docs[1] != (billboardDoc{}) {
		t.Errorf("unexpected docs %+v", docs)
	}
}

func TestList_MalformedBody(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	})
	c, _ := newTestClient(t, h, Options{})

	_, err := c.List(context.Background(), "colors", "s1")
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("expected ErrAPI, got %v", err)
	}
	if msg := UserMessage(err, "fallback"); msg != "fallback" {
		t.Errorf("expected fallback message, got %q", msg)
	}
}

func TestDelete(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["id"] != "c1" {
			t.Errorf("expected id c1, got %v", body)
		}
		if r.URL.Path != "/api/colors/s1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"message":"Color deleted"}`)
	})
	c, _ := newTestClient(t, h, Options{})

	msg, err := c.Delete(context.Background(), "colors", "s1", "c1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if msg != "Color deleted" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestDelete_APIError(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Billboard not found"}`)
	})
	m := metrics.New()
	c, _ := newTestClient(t, h, Options{Metrics: m})

	_, err := c.Delete(context.Background(), "billboards", "s1", "gone")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", apiErr.StatusCode)
	}
	if errors.Is(err, ErrTransport) {
		t.Error("api error must not match ErrTransport")
	}
	if msg := UserMessage(err, "Error deleting billboard"); msg != "Billboard not found" {
		t.Errorf("expected server message, got %q", msg)
	}
	if got := testutil.ToFloat64(m.APIRequests.WithLabelValues("billboards", "delete", metrics.OutcomeAPI)); got != 1 {
		t.Errorf("expected 1 api error recorded, got %v", got)
	}
}

func TestDelete_APIErrorWithoutMessage(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c, _ := newTestClient(t, h, Options{})

	_, err := c.Delete(context.Background(), "billboards", "s1", "b1")
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("expected ErrAPI, got %v", err)
	}
	if msg := UserMessage(err, "Error deleting billboard"); msg != "Error deleting billboard" {
		t.Errorf("expected fallback, got %q", msg)
	}
}

func TestTransportError(t *testing.T) {
	c, srv := newTestClient(t, http.NotFoundHandler(), Options{})
	srv.Close()

	_, err := c.List(context.Background(), "billboards", "s1")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if errors.Is(err, ErrAPI) {
		t.Error("transport error must not match ErrAPI")
	}
	if msg := UserMessage(err, "Error deleting billboard"); msg != "Error deleting billboard" {
		t.Errorf("expected fallback for transport error, got %q", msg)
	}
}

func TestContextCanceled(t *testing.T) {
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c, _ := newTestClient(t, h, Options{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.List(ctx, "billboards", "s1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected cancellation to be a transport failure, got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c, _ := newTestClient(t, h, Options{Timeout: 30 * time.Millisecond})
	defer close(release)

	_, err := c.List(context.Background(), "billboards", "s1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDeleteAsset(t *testing.T) {
	var got map[string]string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cloudinary" || r.Method != http.MethodDelete {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})
	c, _ := newTestClient(t, h, Options{})

	if err := c.DeleteAsset(context.Background(), "billboards/p1"); err != nil {
		t.Fatalf("DeleteAsset: %v", err)
	}
	if got["public_id"] != "billboards/p1" {
		t.Errorf("expected public_id in body, got %v", got)
	}
}

func TestRateLimit(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"data":[]}`)
	})
	c, _ := newTestClient(t, h, Options{RequestsPerSecond: 1, Burst: 1})

	if _, err := c.List(context.Background(), "colors", "s1"); err != nil {
		t.Fatalf("first List: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.List(ctx, "colors", "s1")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected throttled call to fail as transport error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call to reach the server, got %d", calls.Load())
	}
}

func TestBasePathPreserved(t *testing.T) {
	var gotPath string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"data":[]}`)
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL + "/admin/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.List(context.Background(), "colors", "s1"); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !strings.HasPrefix(gotPath, "/admin/api/colors/") {
		t.Errorf("expected base path to be kept, got %q", gotPath)
	}
}
