// Package session implements the Socket Session: the single logical
// bidirectional connection to the backend, modeled after the fleet
// agent's own gorilla/websocket client (agent/agent/ws_client.go) but
// rebuilt around the print protocol's request/reply and
// fire-and-forget rules instead of the original proxy/heartbeat-only
// surface.
package session

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"repairmind/printagent/internal/events"
	"repairmind/printagent/internal/logger"
)

// reconnectBackoff is the fixed delay table from §4.6: [5,5,10,10,30,
// 30,60]s; any attempt beyond the table's length reuses its last
// entry (60s) forever, per the delay[min(attempt,len-1)] formula —
// reconnection never stops and never panics on a long partition.
var reconnectBackoff = []time.Duration{
	5 * time.Second, 5 * time.Second, 10 * time.Second, 10 * time.Second,
	30 * time.Second, 30 * time.Second, 60 * time.Second,
}

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultRequestTimeout   = 10 * time.Second
	defaultAuthTimeout      = 10 * time.Second
	defaultHeartbeatPeriod  = 30 * time.Second
)

// Config carries everything the Session needs to reach and
// authenticate with the backend.
type Config struct {
	URL               string
	TenantID          string
	ClientID          string
	Token             string
	APIKey            string
	HeartbeatInterval time.Duration
	InsecureSkipVerify bool
}

// JobHandler is invoked once per inbound new_print_job frame.
type JobHandler func(WireJob)

// Session is the single logical connection to the backend described
// by §4.6. Exactly one Session is live per process; a reconnect tears
// down the old websocket.Conn and every goroutine reading it before a
// new one is dialed, so there is never more than one reader per
// socket instance.
type Session struct {
	cfg Config
	bus *events.Bus
	log logger.Logger

	mu                 sync.Mutex
	conn               *websocket.Conn
	state              State
	generation         int
	operatorDisconnect bool
	reconnectAttempt   int

	waiters map[string][]chan Message

	cache      *printerCache
	jobHandler JobHandler

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New constructs a Session. Call Connect to start the connection
// lifecycle; it returns immediately and manages reconnection in the
// background for the rest of the process's life.
func New(cfg Config, bus *events.Bus, log logger.Logger) *Session {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatPeriod
	}
	if bus == nil {
		bus = events.New()
	}
	if log == nil {
		log = logger.Noop{}
	}
	return &Session{
		cfg:     cfg,
		bus:     bus,
		log:     log,
		state:   StateDisconnected,
		waiters: make(map[string][]chan Message),
		cache:   newPrinterCache(),
		stopCh:  make(chan struct{}),
	}
}

// SetJobHandler registers the callback invoked for every inbound job.
func (s *Session) SetJobHandler(fn JobHandler) {
	s.mu.Lock()
	s.jobHandler = fn
	s.mu.Unlock()
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts (or restarts) the connection lifecycle in the
// background and returns immediately — a failed initial attempt is
// not an error here, it schedules a reconnect like any other drop.
func (s *Session) Connect() {
	s.mu.Lock()
	s.operatorDisconnect = false
	s.mu.Unlock()
	go s.attemptConnect()
}

// Disconnect is the operator-initiated path: the session closes its
// socket and does not schedule a reconnect until Connect is called
// again.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.operatorDisconnect = true
	conn := s.conn
	s.conn = nil
	s.setStateLocked(StateDisconnected)
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Stop tears the session down permanently; unlike Disconnect it also
// halts the background goroutines entirely (used at process shutdown).
func (s *Session) Stop() {
	s.Disconnect()
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Session) setStateLocked(state State) {
	s.state = state
}

// attemptConnect runs one connection attempt: dial, authenticate,
// mark connected. On any failure it schedules a reconnect per §4.6's
// backoff table, except on an auth_error, which is surfaced to the
// shell and never auto-retried with the same credentials.
func (s *Session) attemptConnect() {
	s.mu.Lock()
	s.generation++
	myGeneration := s.generation
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		s.failAndScheduleReconnect(myGeneration, fmt.Errorf("invalid server URL: %w", err))
		return
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: defaultHandshakeTimeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: s.cfg.InsecureSkipVerify},
	}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		s.failAndScheduleReconnect(myGeneration, fmt.Errorf("dial: %w", err))
		return
	}

	s.mu.Lock()
	if myGeneration != s.generation || s.operatorDisconnect {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.setStateLocked(StateAuthenticating)
	s.mu.Unlock()

	go s.readLoop(conn, myGeneration)

	if err := s.authenticate(myGeneration); err != nil {
		var authErr *authenticationError
		if errors.As(err, &authErr) {
			s.bus.Emit(events.AuthError, authErr.message)
			s.mu.Lock()
			s.setStateLocked(StateDisconnected)
			s.mu.Unlock()
			conn.Close()
			return // credentials are bad; do not loop, await operator
		}
		s.failAndScheduleReconnect(myGeneration, err)
		return
	}

	s.mu.Lock()
	wasReconnect := s.reconnectAttempt > 0
	s.setStateLocked(StateConnected)
	s.reconnectAttempt = 0
	s.mu.Unlock()

	s.bus.Emit(events.Connected, nil)

	if wasReconnect {
		for _, desc := range s.cache.all() {
			if err := s.RegisterPrinter(desc); err != nil {
				s.log.Warn("session: re-register after reconnect failed", "printer", desc.SystemName, "error", err)
			}
		}
		s.bus.Emit(events.Reconnected, nil)
	}

	go s.heartbeatLoop(myGeneration)
}

type authenticationError struct{ message string }

func (e *authenticationError) Error() string { return "authentication failed: " + e.message }

func (s *Session) authenticate(generation int) error {
	data := map[string]interface{}{
		"tenantId": s.cfg.TenantID,
		"clientId": s.cfg.ClientID,
		"token":    s.cfg.Token,
		"apiKey":   s.cfg.APIKey,
	}
	reply, err := s.request(msgAuthenticate, data, msgAuthenticated, msgAuthError, defaultAuthTimeout)
	if err != nil {
		return err
	}
	if reply.Type == msgAuthError {
		return &authenticationError{message: stringField(reply.Data, "message")}
	}
	if !boolField(reply.Data, "success") {
		return &authenticationError{message: "authenticated frame without success=true"}
	}
	return nil
}

// failAndScheduleReconnect marks the session disconnected and, unless
// an operator disconnect or a newer connection attempt has already
// superseded this one, schedules the next attempt per the backoff
// table.
func (s *Session) failAndScheduleReconnect(generation int, cause error) {
	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return
	}
	if s.operatorDisconnect {
		s.setStateLocked(StateDisconnected)
		s.mu.Unlock()
		return
	}
	attempt := s.reconnectAttempt
	s.reconnectAttempt++
	s.setStateLocked(StateReconnecting)
	s.mu.Unlock()

	s.bus.Emit(events.ReconnectFailed, reconnectFailedPayload{Attempt: attempt, Error: cause.Error()})

	delay := reconnectBackoff[min(attempt, len(reconnectBackoff)-1)]

	s.bus.Emit(events.Reconnecting, reconnectingPayload{Attempt: attempt + 1, Delay: delay})

	time.AfterFunc(delay, func() {
		select {
		case <-s.stopCh:
			return
		default:
		}
		s.attemptConnect()
	})
}

// reconnectingPayload and reconnectFailedPayload are the event
// payloads for UI display named in §7's "User-visible failure
// behavior".
type reconnectingPayload struct {
	Attempt int
	Delay   time.Duration
}

type reconnectFailedPayload struct {
	Attempt int
	Error   string
}

func (s *Session) readLoop(conn *websocket.Conn, generation int) {
	defer func() {
		s.mu.Lock()
		stillCurrent := generation == s.generation
		if stillCurrent {
			s.conn = nil
		}
		operatorLeft := s.operatorDisconnect
		s.mu.Unlock()

		if stillCurrent && !operatorLeft {
			s.bus.Emit(events.Disconnected, nil)
			s.failAndScheduleReconnect(generation, errors.New("connection closed"))
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Warn("session: failed to parse inbound message", "error", err)
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg Message) {
	s.mu.Lock()
	waiting := s.waiters[msg.Type]
	s.mu.Unlock()
	if len(waiting) > 0 {
		// Fan out to every pending call registered for this message
		// type: the wire protocol carries no per-call correlation id
		// (§6's error frame is just {message}), so when more than one
		// request of the same kind is in flight, each waiter gets its
		// own copy instead of one caller silently clobbering another's
		// registration and leaving it to time out.
		for _, ch := range waiting {
			select {
			case ch <- msg:
			default:
			}
		}
		return
	}

	switch msg.Type {
	case msgNewPrintJob:
		s.handleNewPrintJob(msg)
	case msgHeartbeatAck, msgJobStatusUpdated:
		// fire-and-forget acks; nothing to correlate, per the open
		// question on job_status_updated in §9.
	case msgError:
		s.bus.Emit(events.Error, stringField(msg.Data, "message"))
	default:
		s.log.Debug("session: unhandled message type", "type", msg.Type)
	}
}

func (s *Session) handleNewPrintJob(msg Message) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		s.log.Error("session: failed to re-marshal new_print_job payload", "error", err)
		return
	}
	var job WireJob
	if err := json.Unmarshal(data, &job); err != nil {
		s.log.Error("session: failed to decode new_print_job payload", "error", err)
		return
	}

	s.mu.Lock()
	handler := s.jobHandler
	s.mu.Unlock()
	if handler != nil {
		handler(job)
	}
}

func (s *Session) heartbeatLoop(generation int) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			current := generation == s.generation && s.state == StateConnected
			s.mu.Unlock()
			if !current {
				return
			}
			// §6's heartbeat payload is {printerId}: one frame per
			// registered printer, not one frame for the session, so
			// the backend can tell which printers are still alive
			// behind this connection.
			for _, desc := range s.cache.all() {
				_ = s.send(msgHeartbeat, map[string]interface{}{"printerId": desc.SystemName})
			}
		}
	}
}
