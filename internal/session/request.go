package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

var errNotConnected = errors.New("session: not connected")

// send writes one frame to the current socket. It is used both by
// request (which also awaits a reply) and by fire-and-forget sends.
func (s *Session) send(msgType string, data map[string]interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return errNotConnected
	}

	msg := Message{Type: msgType, Data: data, Timestamp: time.Now()}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}

	conn.SetWriteDeadline(time.Now().Add(defaultRequestTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write %s: %w", msgType, err)
	}
	return nil
}

// request implements the scoped request/reply pattern from Design
// Note "Promise-style ack handlers" in §9: it registers a one-shot
// waiter for ackType and errType, sends the outbound frame, and
// guarantees both registrations are removed on every exit path
// (success, error frame, or timeout) so a later call of the same kind
// never reads a stale reply meant for this one. Waiters are kept in a
// per-type list rather than a single slot: the wire protocol's
// generic `error` frame carries no correlation id, so two calls of
// the same kind (or any call racing an unrelated error) in flight at
// once each get their own channel instead of the second registration
// overwriting the first's and leaving it to time out silently.
func (s *Session) request(msgType string, data map[string]interface{}, ackType, errType string, timeout time.Duration) (Message, error) {
	ch := make(chan Message, 2)

	s.mu.Lock()
	s.waiters[ackType] = append(s.waiters[ackType], ch)
	if errType != "" {
		s.waiters[errType] = append(s.waiters[errType], ch)
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.removeWaiterLocked(ackType, ch)
		if errType != "" {
			s.removeWaiterLocked(errType, ch)
		}
		s.mu.Unlock()
	}()

	if err := s.send(msgType, data); err != nil {
		return Message{}, err
	}

	select {
	case msg := <-ch:
		return msg, nil
	case <-time.After(timeout):
		return Message{}, fmt.Errorf("%s: timed out waiting for %s/%s", msgType, ackType, errType)
	case <-s.stopCh:
		return Message{}, errors.New("session stopped while awaiting reply")
	}
}

// removeWaiterLocked deletes ch from msgType's waiter list by
// identity. Must be called with s.mu held.
func (s *Session) removeWaiterLocked(msgType string, ch chan Message) {
	list := s.waiters[msgType]
	for i, c := range list {
		if c == ch {
			s.waiters[msgType] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.waiters[msgType]) == 0 {
		delete(s.waiters, msgType)
	}
}
