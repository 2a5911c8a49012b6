// Package queue implements the Job Queue: a durable, crash-safe,
// idempotent print job queue with priority, TTL, retry-with-backoff,
// per-printer parallelism, and a pluggable executor callback. It is
// the arbiter for "at most one job per printer at a time" — there is
// no global job-level lock, only a busy-printer set guarded by the
// queue's own mutex.
package queue

import (
	"sort"
	"sync"
	"time"

	"repairmind/printagent/internal/events"
	"repairmind/printagent/internal/logger"
)

// Options configures a Queue at construction.
type Options struct {
	Path         string
	Logger       logger.Logger
	Bus          *events.Bus
	MaxRetries   int
	RetryDelays  []time.Duration
	DefaultTTL   time.Duration
	HistoryLimit int
}

// Queue is the Job Queue. All public methods acquire a single mutex;
// the in-memory map is never mutated or iterated outside it.
type Queue struct {
	mu           sync.Mutex
	entries      map[string]*Entry
	busyPrinters map[string]bool
	metrics      Metrics

	execute ExecuteFunc
	bus     *events.Bus
	log     logger.Logger

	path         string
	maxRetries   int
	retryDelays  []time.Duration
	defaultTTL   time.Duration
	historyLimit int

	saveTimer *time.Timer

	retryTicker  *time.Ticker
	expireTicker *time.Ticker
	stopCh       chan struct{}
	stopOnce     sync.Once
}

// New constructs a Queue, loading and reconciling any existing state
// at opts.Path per the crash-recovery rules: processing entries are
// demoted to queued, queued entries already past their TTL are
// expired, and missing fields are back-filled.
func New(opts Options) (*Queue, error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if len(opts.RetryDelays) == 0 {
		opts.RetryDelays = DefaultRetryDelays()
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Bus == nil {
		opts.Bus = events.New()
	}

	q := &Queue{
		entries:      make(map[string]*Entry),
		busyPrinters: make(map[string]bool),
		bus:          opts.Bus,
		log:          opts.Logger,
		path:         opts.Path,
		maxRetries:   opts.MaxRetries,
		retryDelays:  opts.RetryDelays,
		defaultTTL:   opts.DefaultTTL,
		historyLimit: opts.HistoryLimit,
		stopCh:       make(chan struct{}),
	}
	if q.log == nil {
		q.log = logger.Noop{}
	}

	if opts.Path != "" {
		state, err := loadState(opts.Path)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		for _, e := range state.Jobs {
			if e.Priority == "" {
				e.Priority = PriorityNormal
			}
			if e.MaxRetries == 0 {
				e.MaxRetries = q.maxRetries
			}
			if e.ExpiresAt.IsZero() {
				e.ExpiresAt = e.CreatedAt.Add(q.defaultTTL)
			}
			if e.Status == StatusProcessing {
				e.Status = StatusQueued
				e.NextRetryAt = time.Time{}
			}
			if e.Status == StatusQueued && !e.ExpiresAt.IsZero() && e.ExpiresAt.Before(now) {
				e.Status = StatusExpired
				e.Error = "TTL exceeded"
				e.UpdatedAt = now
			}
			q.entries[e.ID] = e
		}
		q.metrics = state.Metrics
		q.trimHistoryLocked()
	}

	return q, nil
}

// SetExecuteCallback registers the function the Queue invokes to
// perform one job's render+submit+monitor work. It must be set before
// StartRetryTimer if any entries are already queued from a reload.
func (q *Queue) SetExecuteCallback(fn ExecuteFunc) {
	q.mu.Lock()
	q.execute = fn
	q.mu.Unlock()
}

// StartRetryTimer arms the periodic scheduling tick (5s) and the TTL
// expiration tick (60s), and runs one scheduling pass immediately so
// entries reloaded from disk don't wait a full tick to start.
func (q *Queue) StartRetryTimer() {
	q.retryTicker = time.NewTicker(schedulingTickInterval)
	q.expireTicker = time.NewTicker(expirationTickInterval)

	go func() {
		for {
			select {
			case <-q.stopCh:
				return
			case <-q.retryTicker.C:
				q.schedule()
			case <-q.expireTicker.C:
				q.expireOverdue()
				q.schedule()
			}
		}
	}()

	q.schedule()
}

// Stop halts the scheduling/expiration tickers and flushes any
// pending debounced save synchronously, so a clean shutdown never
// loses the last mutation.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
		if q.retryTicker != nil {
			q.retryTicker.Stop()
		}
		if q.expireTicker != nil {
			q.expireTicker.Stop()
		}
	})

	q.mu.Lock()
	if q.saveTimer != nil {
		q.saveTimer.Stop()
	}
	state := q.snapshotLocked()
	q.mu.Unlock()

	if q.path != "" {
		if err := saveState(q.path, state); err != nil {
			q.log.Error("queue: final flush failed", "error", err)
		}
	}
}

// Enqueue validates and accepts job, per §3's idempotency invariant:
// an id already present among non-terminal entries is a no-op that
// emits JobDeduplicated; an id whose prior entry is terminal is
// replaced (no two entries with the same id ever coexist).
func (q *Queue) Enqueue(job Job, opts EnqueueOptions) bool {
	if job.PrinterSystemName == "" || job.ID == "" {
		q.log.Warn("queue: rejecting job with missing id or printer", "jobId", job.ID)
		return false
	}

	q.mu.Lock()
	if existing, ok := q.entries[job.ID]; ok && !existing.Status.Terminal() {
		q.metrics.TotalDeduplicated++
		entryCopy := existing.Clone()
		q.mu.Unlock()
		q.bus.Emit(events.JobDeduplicated, entryCopy)
		return false
	}

	priority := opts.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = q.defaultTTL
	}

	now := time.Now()
	entry := &Entry{
		Job:        job,
		Status:     StatusQueued,
		Priority:   priority,
		MaxRetries: q.maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	q.entries[job.ID] = entry
	q.metrics.TotalEnqueued++
	entryCopy := entry.Clone()
	q.scheduleSaveLocked()
	q.mu.Unlock()

	q.bus.Emit(events.JobQueued, entryCopy)
	q.schedule()
	return true
}

// CancelJob transitions a queued entry to cancelled. It refuses (and
// returns false) if the entry doesn't exist, is already terminal, or
// is currently processing — cancellation cannot preempt a running
// executor.
func (q *Queue) CancelJob(id string) bool {
	q.mu.Lock()
	entry, ok := q.entries[id]
	if !ok || entry.Status != StatusQueued {
		q.mu.Unlock()
		return false
	}
	entry.Status = StatusCancelled
	entry.UpdatedAt = time.Now()
	entryCopy := entry.Clone()
	q.scheduleSaveLocked()
	q.mu.Unlock()

	q.bus.Emit(events.JobCancelled, entryCopy)
	return true
}

// GetStats returns a point-in-time count of entries by status plus
// the number of printers currently busy and the aggregate metrics.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{ActivePrinters: len(q.busyPrinters), Metrics: q.metrics}
	for _, e := range q.entries {
		switch e.Status {
		case StatusQueued:
			stats.Queued++
		case StatusProcessing:
			stats.Processing++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		case StatusExpired:
			stats.Expired++
		case StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// GetRecentJobs returns up to limit entries, newest by UpdatedAt first.
func (q *Queue) GetRecentJobs(limit int) []*Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	all := make([]*Entry, 0, len(q.entries))
	for _, e := range q.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })

	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]*Entry, len(all))
	for i, e := range all {
		out[i] = e.Clone()
	}
	return out
}

// expireOverdue scans queued entries for TTL expiry, per §4.5's 60s
// expiration tick: any queued entry whose ExpiresAt has passed
// transitions to expired with error "TTL exceeded", independent of
// retry count.
func (q *Queue) expireOverdue() {
	q.mu.Lock()
	now := time.Now()
	var expired []*Entry
	for _, e := range q.entries {
		if e.Status == StatusQueued && !e.ExpiresAt.IsZero() && e.ExpiresAt.Before(now) {
			e.Status = StatusExpired
			e.Error = "TTL exceeded"
			e.UpdatedAt = now
			q.metrics.TotalExpired++
			expired = append(expired, e.Clone())
		}
	}
	if len(expired) > 0 {
		q.trimHistoryLocked()
		q.scheduleSaveLocked()
	}
	q.mu.Unlock()

	for _, e := range expired {
		q.bus.Emit(events.JobExpired, e)
	}
}

// schedule runs one scheduling pass: filter queued entries whose
// retry delay has elapsed and whose printer is idle, sort by
// (priority, createdAt), and hand each eligible entry to the
// executor. Marking a printer busy happens while holding q.mu, so two
// concurrent callers (enqueue, tick, executor completion) can never
// double-start a job on the same printer — the mutex is the
// re-entrancy guard.
func (q *Queue) schedule() {
	q.mu.Lock()
	if q.execute == nil {
		q.mu.Unlock()
		return
	}

	now := time.Now()
	var candidates []*Entry
	for _, e := range q.entries {
		if e.Status != StatusQueued {
			continue
		}
		if !e.NextRetryAt.IsZero() && e.NextRetryAt.After(now) {
			continue
		}
		if q.busyPrinters[e.PrinterSystemName] {
			continue
		}
		candidates = append(candidates, e)
	}

	sort.Slice(candidates, func(i, j int) bool {
		pi, pj := candidates[i].Priority.ordinal(), candidates[j].Priority.ordinal()
		if pi != pj {
			return pi < pj
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	var starting []*Entry
	for _, e := range candidates {
		if q.busyPrinters[e.PrinterSystemName] {
			continue // another candidate for the same printer already won this pass
		}
		q.busyPrinters[e.PrinterSystemName] = true
		e.Status = StatusProcessing
		e.UpdatedAt = now
		starting = append(starting, e)
	}
	if len(starting) > 0 {
		q.scheduleSaveLocked()
	}

	snapshots := make([]*Entry, len(starting))
	for i, e := range starting {
		snapshots[i] = e.Clone()
	}
	q.mu.Unlock()

	for i, e := range starting {
		q.bus.Emit(events.JobProcessing, snapshots[i])
		go q.runJob(e.ID)
	}
}

// runJob invokes the registered executor for entry id and applies the
// §4.5 executor lifecycle result: completed on success; queued with a
// backoff NextRetryAt on a retryable failure; failed once maxRetries
// is exhausted. The printer is always released and a fresh scheduling
// pass is triggered afterward, win or lose; a retry also arms a timer
// that runs another pass once its backoff delay has elapsed.
func (q *Queue) runJob(id string) {
	q.mu.Lock()
	entry, ok := q.entries[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	printerName := entry.PrinterSystemName
	snapshot := entry.Clone()
	q.mu.Unlock()

	err := q.execute(snapshot)

	q.mu.Lock()
	entry, ok = q.entries[id]
	if !ok {
		delete(q.busyPrinters, printerName)
		q.mu.Unlock()
		return
	}

	now := time.Now()
	var evt events.Name
	if err == nil {
		entry.Status = StatusCompleted
		entry.Error = ""
		q.metrics.TotalCompleted++
		evt = events.JobCompleted
	} else if entry.Retries < entry.MaxRetries {
		entry.Retries++
		delay := q.retryDelays[min(entry.Retries-1, len(q.retryDelays)-1)]
		entry.NextRetryAt = now.Add(delay)
		time.AfterFunc(delay, func() {
			select {
			case <-q.stopCh:
			default:
				q.schedule()
			}
		})
		entry.Status = StatusQueued
		entry.Error = err.Error()
		evt = events.JobRetrying
	} else {
		entry.Status = StatusFailed
		entry.Error = err.Error()
		q.metrics.TotalFailed++
		evt = events.JobFailed
	}
	entry.UpdatedAt = now
	delete(q.busyPrinters, printerName)
	q.trimHistoryLocked()
	q.scheduleSaveLocked()
	entryCopy := entry.Clone()
	q.mu.Unlock()

	q.bus.Emit(evt, entryCopy)
	q.schedule()
}

// trimHistoryLocked deletes the oldest terminal entries (by
// UpdatedAt) once their count exceeds historyLimit. Must be called
// with q.mu held.
func (q *Queue) trimHistoryLocked() {
	var terminal []*Entry
	for _, e := range q.entries {
		if e.Status.Terminal() {
			terminal = append(terminal, e)
		}
	}
	if len(terminal) <= q.historyLimit {
		return
	}
	sort.Slice(terminal, func(i, j int) bool { return terminal[i].UpdatedAt.Before(terminal[j].UpdatedAt) })
	excess := len(terminal) - q.historyLimit
	for _, e := range terminal[:excess] {
		delete(q.entries, e.ID)
	}
}

// scheduleSaveLocked arms (or re-arms) the debounced persistence
// timer. Must be called with q.mu held.
func (q *Queue) scheduleSaveLocked() {
	if q.path == "" {
		return
	}
	if q.saveTimer != nil {
		q.saveTimer.Stop()
	}
	q.saveTimer = time.AfterFunc(saveDebounce, q.flush)
}

// flush serializes the current state and writes it atomically. It is
// invoked by the debounce timer and by Stop, never while q.mu is held
// by its caller.
func (q *Queue) flush() {
	q.mu.Lock()
	state := q.snapshotLocked()
	q.mu.Unlock()

	if err := saveState(q.path, state); err != nil {
		q.log.Error("queue: save failed", "error", err)
		q.bus.Emit(events.Error, err.Error())
	}
}

// snapshotLocked builds the persisted file format from current state.
// Must be called with q.mu held.
func (q *Queue) snapshotLocked() *fileFormat {
	jobs := make([]*Entry, 0, len(q.entries))
	for _, e := range q.entries {
		jobs = append(jobs, e.Clone())
	}
	q.metrics.SavedAt = time.Now()
	return &fileFormat{Jobs: jobs, Metrics: q.metrics, SavedAt: q.metrics.SavedAt}
}
