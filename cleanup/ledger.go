// Package cleanup tracks asset deletions that failed after their record
// was already deleted, and retries them. A record delete and its asset
// delete are two independent calls; the ledger gives the second one
// at-least-once semantics instead of silently orphaning the asset.
package cleanup

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when removing an asset that is not pending.
var ErrNotFound = errors.New("pending asset not found")

// Pending is an asset whose deletion still has to succeed.
type Pending struct {
	AssetID       string    `json:"asset_id"`
	Kind          string    `json:"kind"`
	ScopeID       string    `json:"scope_id"`
	RecordID      string    `json:"record_id"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
}

// Ledger persists pending asset deletions keyed by AssetID.
type Ledger interface {
	// Add inserts p or replaces the entry with the same AssetID.
	Add(ctx context.Context, p Pending) error
	// List returns all entries ordered by CreatedAt, then AssetID.
	List(ctx context.Context) ([]Pending, error)
	// Remove deletes the entry for assetID.
	Remove(ctx context.Context, assetID string) error
}

func sortPending(ps []Pending) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].AssetID < ps[j].AssetID
	})
}

// MemoryLedger is an in-process Ledger. Entries are lost on exit.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]Pending
}

// NewMemoryLedger returns an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]Pending)}
}

func (m *MemoryLedger) Add(_ context.Context, p Pending) error {
	if p.AssetID == "" {
		return errors.New("cleanup: empty asset id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[p.AssetID] = p
	return nil
}

func (m *MemoryLedger) List(_ context.Context) ([]Pending, error) {
	m.mu.Lock()
	out := make([]Pending, 0, len(m.entries))
	for _, p := range m.entries {
		out = append(out, p)
	}
	m.mu.Unlock()
	sortPending(out)
	return out, nil
}

func (m *MemoryLedger) Remove(_ context.Context, assetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[assetID]; !ok {
		return ErrNotFound
	}
	delete(m.entries, assetID)
	return nil
}
