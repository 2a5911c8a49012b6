// Package orchestrator wires the Printer Enumerator, Document
// Renderer, Spooler Driver/Monitor, Job Queue, and Socket Session
// together into the single process described in §4.7: it owns the
// startup sequence, installs the queue's executor, keeps the
// printer-registration and pending-job resync flow in step with the
// connection lifecycle, and holds the lifetime metrics the shell
// reads for its status line.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"repairmind/printagent/internal/config"
	"repairmind/printagent/internal/events"
	"repairmind/printagent/internal/logger"
	"repairmind/printagent/internal/printer"
	"repairmind/printagent/internal/queue"
	"repairmind/printagent/internal/render"
	"repairmind/printagent/internal/session"
	"repairmind/printagent/internal/spool"
)

// monitorSafetyTimeout is the 150s backstop above the Spooler
// Monitor's own 120s poll timeout (§5's "Suspension points").
const monitorSafetyTimeout = 150 * time.Second

// Options configures an Orchestrator at construction.
type Options struct {
	Config *config.Config
	Bus    *events.Bus
	Logger logger.Logger

	// QueuePath is the job queue's persisted JSON file, typically
	// <data-dir>/job-queue.json (the default data dir being
	// <home>/.repairmind-print).
	QueuePath string
}

// Orchestrator is the Core Orchestrator from §4.7.
type Orchestrator struct {
	cfg *config.Config
	bus *events.Bus
	log logger.Logger

	queue   *queue.Queue
	session *session.Session

	mu               sync.Mutex
	printersByName   map[string]printer.Descriptor
	registeredOnce   bool

	metricsMu sync.Mutex
	metrics   metrics
}

type metrics struct {
	startedAt         time.Time
	reconnections     int
	jobsReceived      int
	jobsCompleted     int
	jobsFailed        int
	pendingJobsSynced int
}

// Status is the point-in-time snapshot surfaced to the CLI status
// line and any other shell.
type Status struct {
	StartedAt         time.Time
	Uptime            time.Duration
	Reconnections     int
	JobsReceived      int
	JobsCompleted     int
	JobsFailed        int
	PendingJobsSynced int
	SuccessRate       float64
	SessionState      session.State
	QueueStats        queue.Stats
	Printers          []printer.Descriptor
}

// New builds the Orchestrator's Job Queue and Socket Session and
// wires the event subscriptions that drive the connection-lifecycle
// steps of §4.7 (5 and 6). It does not enumerate printers or start
// anything background yet — call Start for that.
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, errors.New("orchestrator: Config is required")
	}
	if opts.Bus == nil {
		opts.Bus = events.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop{}
	}

	q, err := queue.New(queue.Options{
		Path:   opts.QueuePath,
		Logger: opts.Logger,
		Bus:    opts.Bus,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build job queue: %w", err)
	}

	heartbeat := time.Duration(opts.Config.HeartbeatSeconds) * time.Second
	sess := session.New(session.Config{
		URL:               opts.Config.WebsocketURL(),
		TenantID:          opts.Config.TenantID,
		ClientID:          opts.Config.ClientID,
		Token:             opts.Config.Token,
		APIKey:            opts.Config.APIKey,
		HeartbeatInterval: heartbeat,
	}, opts.Bus, opts.Logger)

	o := &Orchestrator{
		cfg:            opts.Config,
		bus:            opts.Bus,
		log:            opts.Logger,
		queue:          q,
		session:        sess,
		printersByName: make(map[string]printer.Descriptor),
	}

	q.SetExecuteCallback(o.execute)
	sess.SetJobHandler(o.onInboundJob)

	opts.Bus.On(events.Connected, func(events.Event) { o.onConnected() })
	opts.Bus.On(events.Reconnected, func(events.Event) { o.onReconnected() })
	opts.Bus.On(events.JobCompleted, func(events.Event) {
		o.metricsMu.Lock()
		o.metrics.jobsCompleted++
		o.metricsMu.Unlock()
	})
	opts.Bus.On(events.JobFailed, func(events.Event) {
		o.metricsMu.Lock()
		o.metrics.jobsFailed++
		o.metricsMu.Unlock()
	})

	return o, nil
}

// Start runs §4.7's steps 2 through 4: enumerate printers, start the
// queue's retry/expiry timers, and open the socket session. Printer
// enumeration and the queue's timers have no dependency on one
// another, so they run concurrently under one errgroup the way §5
// asks orchestrator startup to — enumeration failure is logged and
// treated as "zero printers found", never fatal to the group.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.metricsMu.Lock()
	o.metrics.startedAt = time.Now()
	o.metricsMu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		o.enumeratePrinters()
		return nil
	})
	g.Go(func() error {
		o.queue.StartRetryTimer()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	o.session.Connect()
	return nil
}

// Stop tears down the session and flushes the queue to disk, the
// graceful-shutdown contract from §6's CLI surface.
func (o *Orchestrator) Stop() {
	o.session.Stop()
	o.queue.Stop()
}

func (o *Orchestrator) enumeratePrinters() {
	descriptors, err := printer.Enumerate()
	if err != nil {
		o.log.Warn("orchestrator: printer enumeration failed", "error", err)
		o.bus.Emit(events.Warning, err.Error())
		return
	}

	o.mu.Lock()
	for _, d := range descriptors {
		o.printersByName[d.SystemName] = d
	}
	o.mu.Unlock()
	o.log.Info("orchestrator: enumerated printers", "count", len(descriptors))
}

// onConnected implements §4.7 step 5, guarded to run only on the
// first connection this process makes: later reconnects are handled
// by onReconnected instead, since the Session itself replays printer
// registration from its own cache on every reconnect.
func (o *Orchestrator) onConnected() {
	o.mu.Lock()
	first := !o.registeredOnce
	o.registeredOnce = true
	descriptors := make([]printer.Descriptor, 0, len(o.printersByName))
	for _, d := range o.printersByName {
		descriptors = append(descriptors, d)
	}
	o.mu.Unlock()

	if !first {
		return
	}

	for _, d := range descriptors {
		if err := o.session.RegisterPrinter(d); err != nil {
			o.log.Warn("orchestrator: printer registration failed", "printer", d.SystemName, "error", err)
		}
	}
	o.syncPendingJobs()
}

// onReconnected implements §4.7 step 6: re-registration already
// happened inside Session.attemptConnect before it emitted
// Reconnected, so this only resyncs pending jobs.
func (o *Orchestrator) onReconnected() {
	o.metricsMu.Lock()
	o.metrics.reconnections++
	o.metricsMu.Unlock()
	o.syncPendingJobs()
}

func (o *Orchestrator) syncPendingJobs() {
	jobs, err := o.session.GetAllPendingJobs()
	if err != nil {
		o.log.Warn("orchestrator: get pending jobs failed", "error", err)
		o.bus.Emit(events.Warning, err.Error())
		return
	}

	synced := 0
	for _, wj := range jobs {
		job, opts := wireJobToQueueJob(wj)
		if o.queue.Enqueue(job, opts) {
			synced++
		}
	}
	o.metricsMu.Lock()
	o.metrics.pendingJobsSynced += synced
	o.metricsMu.Unlock()
}

// onInboundJob is the Socket Session's JobHandler: every new_print_job
// frame lands here and is handed to the queue.
func (o *Orchestrator) onInboundJob(wj session.WireJob) {
	o.metricsMu.Lock()
	o.metrics.jobsReceived++
	o.metricsMu.Unlock()

	job, opts := wireJobToQueueJob(wj)
	o.queue.Enqueue(job, opts)
}

// execute is the queue.ExecuteFunc installed on the Job Queue: §4.7
// step 7's render + submit + monitor + report lifecycle.
func (o *Orchestrator) execute(entry *queue.Entry) error {
	desc, ok := o.lookupPrinter(entry.PrinterSystemName)
	if !ok {
		return fmt.Errorf("printer %q not found", entry.PrinterSystemName)
	}

	if err := o.session.UpdateJobStatus(entry.ID, "sent", nil); err != nil {
		o.log.Debug("orchestrator: sent status not delivered", "job", entry.ID, "error", err)
	}

	job := renderJobFrom(entry)
	output, err := render.Render(job, desc)
	if err != nil {
		o.reportFailure(entry.ID, err)
		return err
	}

	handle, err := spool.Submit(desc.SystemName, output, submitOptionsFrom(entry))
	if err != nil {
		o.reportFailure(entry.ID, err)
		return err
	}

	return o.awaitTerminal(entry.ID, handle)
}

// lookupPrinter checks the cached enumeration first and, on a miss,
// re-enumerates once — the descriptor might be for a printer plugged
// in after the process started.
func (o *Orchestrator) lookupPrinter(systemName string) (printer.Descriptor, bool) {
	o.mu.Lock()
	desc, ok := o.printersByName[systemName]
	o.mu.Unlock()
	if ok {
		return desc, true
	}

	o.enumeratePrinters()

	o.mu.Lock()
	defer o.mu.Unlock()
	desc, ok = o.printersByName[systemName]
	return desc, ok
}

func (o *Orchestrator) reportFailure(jobID string, err error) {
	if sendErr := o.session.UpdateJobStatus(jobID, "failed", map[string]interface{}{"reason": err.Error()}); sendErr != nil {
		o.log.Debug("orchestrator: failed status not delivered", "job", jobID, "error", sendErr)
	}
}

// awaitTerminal blocks the executing goroutine on the Spooler
// Monitor's terminal callback, with the 150s safety backstop from
// §5's suspension-point list above the monitor's own 120s timeout.
func (o *Orchestrator) awaitTerminal(jobID string, handle *spool.Handle) error {
	type outcome struct {
		status  spool.Status
		details string
	}
	done := make(chan outcome, 1)
	var once sync.Once

	cancel := spool.Monitor(handle, func(status spool.Status, details string) {
		if status == spool.StatusPrinting {
			if err := o.session.UpdateJobStatus(jobID, "printing", map[string]interface{}{"details": details}); err != nil {
				o.log.Debug("orchestrator: printing status not delivered", "job", jobID, "error", err)
			}
			return
		}
		once.Do(func() { done <- outcome{status, details} })
	})
	defer cancel()

	select {
	case r := <-done:
		if r.status == spool.StatusCompleted {
			_ = o.session.UpdateJobStatus(jobID, "completed", nil)
			return nil
		}
		o.reportFailure(jobID, errors.New(r.details))
		return fmt.Errorf("print job %s failed: %s", jobID, r.details)

	case <-time.After(monitorSafetyTimeout):
		cancel()
		reason := "spooler monitor safety timeout exceeded"
		o.reportFailure(jobID, errors.New(reason))
		return errors.New(reason)
	}
}

// Status returns a point-in-time snapshot for the CLI status line.
func (o *Orchestrator) Status() Status {
	o.metricsMu.Lock()
	m := o.metrics
	o.metricsMu.Unlock()

	var successRate float64
	if total := m.jobsCompleted + m.jobsFailed; total > 0 {
		successRate = float64(m.jobsCompleted) / float64(total)
	}

	o.mu.Lock()
	printers := make([]printer.Descriptor, 0, len(o.printersByName))
	for _, d := range o.printersByName {
		printers = append(printers, d)
	}
	o.mu.Unlock()

	return Status{
		StartedAt:         m.startedAt,
		Uptime:            time.Since(m.startedAt),
		Reconnections:     m.reconnections,
		JobsReceived:      m.jobsReceived,
		JobsCompleted:     m.jobsCompleted,
		JobsFailed:        m.jobsFailed,
		PendingJobsSynced: m.pendingJobsSynced,
		SuccessRate:       successRate,
		SessionState:      o.session.State(),
		QueueStats:        o.queue.GetStats(),
		Printers:          printers,
	}
}

// Queue exposes the underlying Job Queue for CLI introspection
// (recent jobs, manual cancellation) without re-implementing its API.
func (o *Orchestrator) Queue() *queue.Queue { return o.queue }

// Session exposes the underlying Socket Session for the same reason.
func (o *Orchestrator) Session() *session.Session { return o.session }
