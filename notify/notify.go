// Package notify carries user-facing outcome messages for asynchronous
// table actions. Sinks are fire-and-forget: they never fail and cannot
// be queried for what they were sent, except for the Recorder which
// exists so the console and tests can show recent messages.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Severity classifies a notification.
type Severity string

const (
	SeverityDefault     Severity = "default"
	SeverityDestructive Severity = "destructive"
)

// Notification is a single title/description/severity triple.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	At          time.Time `json:"at"`
}

// Sink receives notifications.
type Sink interface {
	Notify(n Notification)
}

// Func adapts a plain function to a Sink.
type Func func(n Notification)

// Notify calls f(n).
func (f Func) Notify(n Notification) { f(n) }

// Success builds a default-severity notification.
func Success(title, description string) Notification {
	return Notification{Title: title, Description: description, Severity: SeverityDefault}
}

// Failure builds a destructive notification.
func Failure(title, description string) Notification {
	return Notification{Title: title, Description: description, Severity: SeverityDestructive}
}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Notify logs n at info level, or warn level for destructive notifications.
func (s *LogSink) Notify(n Notification) {
	level := slog.LevelInfo
	if n.Severity == SeverityDestructive {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "notification",
		"title", n.Title,
		"description", n.Description,
		"severity", string(n.Severity),
	)
}

// Multi fans a notification out to every sink in order.
type Multi []Sink

// Notify forwards n to each non-nil sink.
func (m Multi) Notify(n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(n)
		}
	}
}

// DefaultHistory is the Recorder capacity used when none is given.
const DefaultHistory = 50

// Recorder keeps the most recent notifications in arrival order.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	entries []Notification
	now     func() time.Time
}

// NewRecorder returns a Recorder holding at most limit notifications.
// A non-positive limit uses DefaultHistory.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &Recorder{limit: limit, now: time.Now}
}

// Notify stores n, stamping it with the arrival time if unset, and drops
// the oldest entry when full.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.At.IsZero() {
		n.At = r.now()
	}
	r.entries = append(r.entries, n)
	if over := len(r.entries) - r.limit; over > 0 {
		r.entries = append(r.entries[:0:0], r.entries[over:]...)
	}
}

// All returns a copy of the stored notifications, oldest first.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.entries))
	copy(out, r.entries)
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Notification{}, false
	}
	return r.entries[len(r.entries)-1], true
}

// Len reports how many notifications are stored.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
