package queue

import "time"

// Status is an entry's position in its lifecycle. Once an entry
// reaches a terminal status (Completed, Failed, Expired, Cancelled)
// it never transitions again.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether s is one of the four statuses an entry
// never leaves once reached.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Priority orders entries targeting the same printer. Lower ordinal
// runs first: Urgent before Normal before Low.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ordinal returns the sort weight for p, defaulting unrecognized
// values to Normal's weight so a malformed priority never starves.
func (p Priority) ordinal() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Job is the queue's view of a print job: identity, routing, and an
// opaque content payload the orchestrator's executor decodes into a
// render.Job. The queue never inspects Content or Options itself —
// doing so would couple the durable, crash-safe queue to the
// document-rendering package, which changes independently.
type Job struct {
	ID                string                 `json:"id"`
	PrinterSystemName string                 `json:"printerSystemName"`
	DocumentType      string                 `json:"documentType"`
	Content           map[string]interface{} `json:"content"`
	Options           map[string]interface{} `json:"options,omitempty"`
}

// Entry wraps a Job with everything the scheduler, retry logic, and
// TTL expiration need. It is what gets persisted and what every
// observable event carries as its payload.
type Entry struct {
	Job
	Status            Status        `json:"status"`
	Priority          Priority      `json:"priority"`
	Retries           int           `json:"retries"`
	MaxRetries        int           `json:"maxRetries"`
	NextRetryAt       time.Time     `json:"nextRetryAt"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
	ExpiresAt         time.Time     `json:"expiresAt"`
	Error             string        `json:"error,omitempty"`
}

// Clone returns a deep-enough copy safe to hand to subscribers or
// callers without racing the queue's own mutation of the original.
func (e *Entry) Clone() *Entry {
	cp := *e
	if e.Content != nil {
		cp.Content = make(map[string]interface{}, len(e.Content))
		for k, v := range e.Content {
			cp.Content[k] = v
		}
	}
	if e.Options != nil {
		cp.Options = make(map[string]interface{}, len(e.Options))
		for k, v := range e.Options {
			cp.Options[k] = v
		}
	}
	return &cp
}

// EnqueueOptions carries the caller-supplied priority and TTL for a
// new job. Zero values fall back to Queue's configured defaults
// (Normal priority, 24h TTL).
type EnqueueOptions struct {
	Priority Priority
	TTL      time.Duration
}

// Metrics are the aggregate lifetime counters persisted alongside
// queue entries and surfaced through GetStats.
type Metrics struct {
	TotalEnqueued     int       `json:"totalEnqueued"`
	TotalCompleted    int       `json:"totalCompleted"`
	TotalFailed       int       `json:"totalFailed"`
	TotalExpired      int       `json:"totalExpired"`
	TotalDeduplicated int       `json:"totalDeduplicated"`
	SavedAt           time.Time `json:"savedAt"`
}

// Stats is the point-in-time snapshot returned by GetStats.
type Stats struct {
	Queued         int
	Processing     int
	Completed      int
	Failed         int
	Expired        int
	Cancelled      int
	ActivePrinters int
	Metrics        Metrics
}

// ExecuteFunc performs the render+submit+monitor work for one entry.
// It is supplied by the orchestrator (internal/queue has no knowledge
// of rendering or spooling) and returns a non-nil error to trigger the
// queue's retry/fail policy.
type ExecuteFunc func(entry *Entry) error

// Default tuning, overridable via Options at construction.
const (
	DefaultMaxRetries     = 3
	DefaultTTL            = 24 * time.Hour
	DefaultHistoryLimit   = 100
	schedulingTickInterval = 5 * time.Second
	expirationTickInterval = 60 * time.Second
	saveDebounce           = 200 * time.Millisecond
)

// DefaultRetryDelays is the [5s, 15s, 60s] backoff table from §4.5;
// retries beyond the table's length reuse the last entry.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{5 * time.Second, 15 * time.Second, 60 * time.Second}
}
