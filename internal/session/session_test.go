package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"repairmind/printagent/internal/events"
	"repairmind/printagent/internal/printer"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// fakeBackend is a minimal stand-in for the real backend's /print
// namespace: it authenticates anything whose token isn't "bad-token",
// acks register_printer/printer_status, and answers get_pending_jobs
// with a scripted job list.
type fakeBackend struct {
	server      *httptest.Server
	pendingJobs []WireJob
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.server = httptest.NewServer(http.HandlerFunc(fb.handle))
	return fb
}

func (fb *fakeBackend) wsURL() string {
	return "ws" + strings.TrimPrefix(fb.server.URL, "http")
}

func (fb *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case msgAuthenticate:
			token, _ := msg.Data["token"].(string)
			if token == "bad-token" {
				fb.reply(conn, msgAuthError, map[string]interface{}{"message": "invalid token"})
			} else {
				fb.reply(conn, msgAuthenticated, map[string]interface{}{"success": true})
			}
		case msgRegisterPrinter:
			fb.reply(conn, msgPrinterRegistered, map[string]interface{}{"systemName": msg.Data["systemName"]})
		case msgPrinterStatus:
			fb.reply(conn, msgStatusUpdated, map[string]interface{}{"printerId": msg.Data["printerId"]})
		case msgGetPendingJobs:
			jobsRaw, _ := json.Marshal(fb.pendingJobs)
			var jobs interface{}
			json.Unmarshal(jobsRaw, &jobs)
			fb.reply(conn, msgPendingJobs, map[string]interface{}{"jobs": jobs})
		case msgHeartbeat, msgJobStatus:
			// fire-and-forget; no reply expected by the client
		}
	}
}

func (fb *fakeBackend) reply(conn *websocket.Conn, msgType string, data map[string]interface{}) {
	msg := Message{Type: msgType, Data: data, Timestamp: time.Now()}
	payload, _ := json.Marshal(msg)
	conn.WriteMessage(websocket.TextMessage, payload)
}

func waitForState(t *testing.T, s *Session, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, last seen %s", want, s.State())
}

func TestConnectAuthenticatesAndReachesConnected(t *testing.T) {
	fb := newFakeBackend(t)
	defer fb.server.Close()

	s := New(Config{URL: fb.wsURL(), TenantID: "t1", ClientID: "c1", Token: "good-token"}, events.New(), nil)
	s.Connect()
	defer s.Stop()

	waitForState(t, s, StateConnected, 2*time.Second)
}

func TestConnectWithBadTokenEmitsAuthErrorAndDoesNotLoop(t *testing.T) {
	fb := newFakeBackend(t)
	defer fb.server.Close()

	bus := events.New()
	authErrors := make(chan string, 1)
	bus.On(events.AuthError, func(e events.Event) {
		if msg, ok := e.Payload.(string); ok {
			select {
			case authErrors <- msg:
			default:
			}
		}
	})

	s := New(Config{URL: fb.wsURL(), TenantID: "t1", ClientID: "c1", Token: "bad-token"}, bus, nil)
	s.Connect()
	defer s.Stop()

	select {
	case msg := <-authErrors:
		if msg != "invalid token" {
			t.Fatalf("unexpected auth error message: %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auth-error event")
	}

	time.Sleep(50 * time.Millisecond)
	if s.State() == StateConnected {
		t.Fatal("a bad token must never reach connected")
	}
}

func TestRegisterPrinterRoundTripsAndCaches(t *testing.T) {
	fb := newFakeBackend(t)
	defer fb.server.Close()

	s := New(Config{URL: fb.wsURL(), TenantID: "t1", ClientID: "c1", Token: "good-token"}, events.New(), nil)
	s.Connect()
	defer s.Stop()
	waitForState(t, s, StateConnected, 2*time.Second)

	desc := printer.Descriptor{SystemName: "TM-T88V", DisplayName: "TM-T88V", Type: printer.TypeThermal}
	if err := s.RegisterPrinter(desc); err != nil {
		t.Fatalf("RegisterPrinter: %v", err)
	}

	cached := s.cache.all()
	if len(cached) != 1 || cached[0].SystemName != "TM-T88V" {
		t.Fatalf("expected descriptor to be cached, got %+v", cached)
	}
}

func TestGetAllPendingJobsDecodesWireJobs(t *testing.T) {
	fb := newFakeBackend(t)
	defer fb.server.Close()
	fb.pendingJobs = []WireJob{
		{ID: "J1", PrinterSystemName: "TM-T88V", DocumentType: "receipt", Content: map[string]interface{}{"storeName": "S"}},
	}

	s := New(Config{URL: fb.wsURL(), TenantID: "t1", ClientID: "c1", Token: "good-token"}, events.New(), nil)
	s.Connect()
	defer s.Stop()
	waitForState(t, s, StateConnected, 2*time.Second)

	jobs, err := s.GetAllPendingJobs()
	if err != nil {
		t.Fatalf("GetAllPendingJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "J1" {
		t.Fatalf("expected job J1, got %+v", jobs)
	}
}

func TestNewPrintJobDispatchesToHandler(t *testing.T) {
	fb := newFakeBackend(t)
	defer fb.server.Close()

	s := New(Config{URL: fb.wsURL(), TenantID: "t1", ClientID: "c1", Token: "good-token"}, events.New(), nil)
	received := make(chan WireJob, 1)
	s.SetJobHandler(func(job WireJob) { received <- job })
	s.Connect()
	defer s.Stop()
	waitForState(t, s, StateConnected, 2*time.Second)

	// Simulate the backend pushing a job by dialing in as a second
	// client is unnecessary: reuse the handler's connection by sending
	// a message server-side isn't directly exposed, so instead assert
	// the dispatch path via direct unit invocation of dispatch().
	s.dispatch(Message{Type: msgNewPrintJob, Data: map[string]interface{}{
		"id": "J2", "printerSystemName": "TM-T88V", "documentType": "receipt",
		"content": map[string]interface{}{"storeName": "S"},
	}})

	select {
	case job := <-received:
		if job.ID != "J2" {
			t.Fatalf("expected job J2, got %+v", job)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job handler to be invoked")
	}
}

func TestUpdateJobStatusIsFireAndForget(t *testing.T) {
	fb := newFakeBackend(t)
	defer fb.server.Close()

	s := New(Config{URL: fb.wsURL(), TenantID: "t1", ClientID: "c1", Token: "good-token"}, events.New(), nil)
	s.Connect()
	defer s.Stop()
	waitForState(t, s, StateConnected, 2*time.Second)

	if err := s.UpdateJobStatus("J1", "completed", nil); err != nil {
		t.Fatalf("UpdateJobStatus should not error even without an ack: %v", err)
	}
}

func TestReconnectBackoffTableMatchesSpec(t *testing.T) {
	want := []time.Duration{5, 5, 10, 10, 30, 30, 60}
	if len(reconnectBackoff) != len(want) {
		t.Fatalf("expected %d backoff steps, got %d", len(want), len(reconnectBackoff))
	}
	for i, w := range want {
		if reconnectBackoff[i] != w*time.Second {
			t.Fatalf("backoff[%d] = %v, want %ds", i, reconnectBackoff[i], w)
		}
	}
}

func TestDisconnectIsOperatorInitiatedAndDoesNotReconnect(t *testing.T) {
	fb := newFakeBackend(t)
	defer fb.server.Close()

	bus := events.New()
	reconnecting := make(chan struct{}, 1)
	bus.On(events.Reconnecting, func(events.Event) {
		select {
		case reconnecting <- struct{}{}:
		default:
		}
	})

	s := New(Config{URL: fb.wsURL(), TenantID: "t1", ClientID: "c1", Token: "good-token"}, bus, nil)
	s.Connect()
	defer s.Stop()
	waitForState(t, s, StateConnected, 2*time.Second)

	s.Disconnect()
	time.Sleep(100 * time.Millisecond)

	select {
	case <-reconnecting:
		t.Fatal("operator-initiated disconnect must not trigger reconnection")
	default:
	}
	if s.State() != StateDisconnected {
		t.Fatalf("expected disconnected state, got %s", s.State())
	}
}
