package queue

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return q
}

func TestEnqueueAcceptsValidJob(t *testing.T) {
	q := newTestQueue(t)
	ok := q.Enqueue(Job{ID: "J1", PrinterSystemName: "TM-T88V", DocumentType: "receipt"}, EnqueueOptions{})
	if !ok {
		t.Fatal("expected enqueue to succeed")
	}
	stats := q.GetStats()
	if stats.Queued != 1 {
		t.Fatalf("expected 1 queued entry, got %d", stats.Queued)
	}
}

func TestEnqueueRejectsMissingPrinter(t *testing.T) {
	q := newTestQueue(t)
	ok := q.Enqueue(Job{ID: "J1", DocumentType: "receipt"}, EnqueueOptions{})
	if ok {
		t.Fatal("expected enqueue to reject job with no printer")
	}
}

func TestEnqueueIsIdempotentForNonTerminalEntries(t *testing.T) {
	q := newTestQueue(t)
	job := Job{ID: "J1", PrinterSystemName: "TM-T88V", DocumentType: "receipt"}

	first := q.Enqueue(job, EnqueueOptions{})
	second := q.Enqueue(job, EnqueueOptions{})

	if !first {
		t.Fatal("first enqueue should succeed")
	}
	if second {
		t.Fatal("second enqueue of the same id should be a no-op")
	}
	stats := q.GetStats()
	if stats.Queued != 1 {
		t.Fatalf("expected exactly one queued entry after dedup, got %d", stats.Queued)
	}
	if stats.Metrics.TotalDeduplicated != 1 {
		t.Fatalf("expected dedup counter to be 1, got %d", stats.Metrics.TotalDeduplicated)
	}
}

func TestEnqueueReplacesTerminalEntryWithSameID(t *testing.T) {
	q := newTestQueue(t)
	q.entries["J1"] = &Entry{
		Job:       Job{ID: "J1", PrinterSystemName: "TM-T88V"},
		Status:    StatusCompleted,
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	}

	ok := q.Enqueue(Job{ID: "J1", PrinterSystemName: "TM-T88V", DocumentType: "receipt"}, EnqueueOptions{})
	if !ok {
		t.Fatal("expected enqueue to replace a terminal entry with the same id")
	}
	if q.entries["J1"].Status != StatusQueued {
		t.Fatalf("expected replaced entry to be queued, got %s", q.entries["J1"].Status)
	}
}

func TestCancelJobRefusesProcessingEntry(t *testing.T) {
	q := newTestQueue(t)
	q.entries["J1"] = &Entry{Job: Job{ID: "J1", PrinterSystemName: "P1"}, Status: StatusProcessing}

	if q.CancelJob("J1") {
		t.Fatal("expected CancelJob to refuse a processing entry")
	}
}

func TestCancelJobTransitionsQueuedEntry(t *testing.T) {
	q := newTestQueue(t)
	q.entries["J1"] = &Entry{Job: Job{ID: "J1", PrinterSystemName: "P1"}, Status: StatusQueued}

	if !q.CancelJob("J1") {
		t.Fatal("expected CancelJob to succeed on a queued entry")
	}
	if q.entries["J1"].Status != StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", q.entries["J1"].Status)
	}
}

func TestSchedulingRespectsPerPrinterParallelism(t *testing.T) {
	q := newTestQueue(t)

	var mu sync.Mutex
	active := map[string]int{}
	maxConcurrentSamePrinter := 0
	release := make(chan struct{})

	q.SetExecuteCallback(func(entry *Entry) error {
		mu.Lock()
		active[entry.PrinterSystemName]++
		if active[entry.PrinterSystemName] > maxConcurrentSamePrinter {
			maxConcurrentSamePrinter = active[entry.PrinterSystemName]
		}
		mu.Unlock()

		<-release

		mu.Lock()
		active[entry.PrinterSystemName]--
		mu.Unlock()
		return nil
	})

	q.Enqueue(Job{ID: "J1", PrinterSystemName: "P1", DocumentType: "receipt"}, EnqueueOptions{})
	q.Enqueue(Job{ID: "J2", PrinterSystemName: "P1", DocumentType: "receipt"}, EnqueueOptions{})

	time.Sleep(50 * time.Millisecond)
	close(release)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	got := maxConcurrentSamePrinter
	mu.Unlock()

	if got > 1 {
		t.Fatalf("expected at most one concurrent job per printer, observed %d", got)
	}
}

func TestCrossPrinterParallelism(t *testing.T) {
	q := newTestQueue(t)

	started := make(chan string, 2)
	release := make(chan struct{})
	q.SetExecuteCallback(func(entry *Entry) error {
		started <- entry.PrinterSystemName
		<-release
		return nil
	})

	q.Enqueue(Job{ID: "J_A", PrinterSystemName: "P1", DocumentType: "receipt"}, EnqueueOptions{})
	q.Enqueue(Job{ID: "J_B", PrinterSystemName: "P2", DocumentType: "receipt"}, EnqueueOptions{})

	seen := map[string]bool{}
	timeout := time.After(time.Second)
	for i := 0; i < 2; i++ {
		select {
		case p := <-started:
			seen[p] = true
		case <-timeout:
			t.Fatal("timed out waiting for both printers to start within one scheduling pass")
		}
	}
	close(release)

	if !seen["P1"] || !seen["P2"] {
		t.Fatalf("expected both printers to start, got %v", seen)
	}
}

func TestPriorityOvertaking(t *testing.T) {
	q := newTestQueue(t)

	now := time.Now()
	q.entries["J_normal"] = &Entry{
		Job:       Job{ID: "J_normal", PrinterSystemName: "P1", DocumentType: "receipt"},
		Status:    StatusQueued,
		Priority:  PriorityNormal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	q.entries["J_urgent"] = &Entry{
		Job:       Job{ID: "J_urgent", PrinterSystemName: "P1", DocumentType: "receipt"},
		Status:    StatusQueued,
		Priority:  PriorityUrgent,
		CreatedAt: now.Add(5 * time.Millisecond),
		UpdatedAt: now.Add(5 * time.Millisecond),
	}

	var startedID string
	var once sync.Once
	done := make(chan struct{})
	q.SetExecuteCallback(func(entry *Entry) error {
		// J_normal runs after J_urgent completes; only the first start counts.
		once.Do(func() {
			startedID = entry.ID
			close(done)
		})
		return nil
	})

	q.schedule()
	<-done

	if startedID != "J_urgent" {
		t.Fatalf("expected the urgent job to be chosen first, got %s", startedID)
	}
}

func TestRetryOnFailureThenSucceed(t *testing.T) {
	q := newTestQueue(t)
	q.retryDelays = []time.Duration{10 * time.Millisecond}

	attempt := 0
	done := make(chan struct{})
	q.SetExecuteCallback(func(entry *Entry) error {
		attempt++
		if attempt == 1 {
			return errors.New("thermal printer not connected")
		}
		close(done)
		return nil
	})

	q.Enqueue(Job{ID: "J1", PrinterSystemName: "P1", DocumentType: "receipt"}, EnqueueOptions{})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the retried job to complete")
	}

	stats := q.GetStats()
	if stats.Completed != 1 {
		t.Fatalf("expected one completed entry, got stats=%+v", stats)
	}
	if attempt != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempt)
	}
}

func TestFailureExhaustsRetriesAndTerminatesFailed(t *testing.T) {
	q := newTestQueue(t)
	q.maxRetries = 1
	q.retryDelays = []time.Duration{5 * time.Millisecond}

	var attempts int
	var mu sync.Mutex
	q.SetExecuteCallback(func(entry *Entry) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("printer not found")
	})

	q.Enqueue(Job{ID: "J1", PrinterSystemName: "ghost-printer", DocumentType: "receipt"}, EnqueueOptions{})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats := q.GetStats()
		if stats.Failed == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	stats := q.GetStats()
	if stats.Failed != 1 {
		t.Fatalf("expected job to terminate failed, got stats=%+v", stats)
	}
	entry := q.entries["J1"]
	if entry.Retries != entry.MaxRetries {
		t.Fatalf("expected retries to equal maxRetries at failure, got retries=%d maxRetries=%d", entry.Retries, entry.MaxRetries)
	}
	if entry.Error == "" {
		t.Fatal("expected a non-empty error on a failed entry")
	}
}

func TestTTLExpiryMarksExpiredWithoutProcessing(t *testing.T) {
	q := newTestQueue(t)

	executed := false
	q.SetExecuteCallback(func(entry *Entry) error {
		executed = true
		return nil
	})

	past := time.Now().Add(-time.Millisecond)
	q.entries["J1"] = &Entry{
		Job:       Job{ID: "J1", PrinterSystemName: "unregistered", DocumentType: "receipt"},
		Status:    StatusQueued,
		CreatedAt: past,
		UpdatedAt: past,
		ExpiresAt: past,
	}

	q.expireOverdue()

	entry := q.entries["J1"]
	if entry.Status != StatusExpired {
		t.Fatalf("expected expired status, got %s", entry.Status)
	}
	if entry.Error != "TTL exceeded" {
		t.Fatalf("expected TTL exceeded error, got %q", entry.Error)
	}
	if executed {
		t.Fatal("expired job must never reach the executor")
	}
}

func TestGetRecentJobsOrdersByUpdatedAtDescending(t *testing.T) {
	q := newTestQueue(t)
	base := time.Now()
	q.entries["old"] = &Entry{Job: Job{ID: "old", PrinterSystemName: "P1"}, Status: StatusCompleted, UpdatedAt: base}
	q.entries["new"] = &Entry{Job: Job{ID: "new", PrinterSystemName: "P1"}, Status: StatusCompleted, UpdatedAt: base.Add(time.Minute)}

	recent := q.GetRecentJobs(1)
	if len(recent) != 1 || recent[0].ID != "new" {
		t.Fatalf("expected newest entry first, got %+v", recent)
	}
}

func TestHistoryTrimKeepsOnlyNewestTerminalEntries(t *testing.T) {
	q := newTestQueue(t)
	q.historyLimit = 2
	base := time.Now()
	for i := 0; i < 5; i++ {
		id := string(rune('A' + i))
		q.entries[id] = &Entry{
			Job:       Job{ID: id, PrinterSystemName: "P1"},
			Status:    StatusCompleted,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}

	q.mu.Lock()
	q.trimHistoryLocked()
	q.mu.Unlock()

	if len(q.entries) != 2 {
		t.Fatalf("expected history trimmed to 2 entries, got %d", len(q.entries))
	}
	if _, ok := q.entries["E"]; !ok {
		t.Fatal("expected the newest entry to survive trimming")
	}
}
