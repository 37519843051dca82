package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
	"github.com/TimurManjosov/pawswipe/internal/telemetry"
	"github.com/TimurManjosov/pawswipe/internal/validation"
)

// SSE event names.
const (
	sseInit   = "init"
	sseFrame  = "frame"
	sseClosed = "closed"
)

// handleStream serves a session as Server-Sent Events: one init event with
// the session info, then frame, decision and activate events until the client
// leaves or the session closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalError(w, r, "Streaming unsupported")
		return
	}

	sess := sessionFrom(r)
	frames, notices, cancel := sess.Subscribe()
	defer cancel()

	telemetry.StreamClients.Inc()
	defer telemetry.StreamClients.Dec()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, sseInit, sess.Info()); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-frames:
			if !ok {
				_ = writeSSE(w, sseClosed, map[string]string{"id": sess.ID()})
				flusher.Flush()
				return
			}
			err = writeSSE(w, sseFrame, f)
		case n, ok := <-notices:
			if !ok {
				notices = nil
				continue
			}
			err = writeSSE(w, n.Kind, n)
		case <-heartbeat.C:
			_, err = io.WriteString(w, ": ping\n\n")
		}
		if err != nil {
			s.log.Debug().Err(err).Str("session", sess.ID()).Msg("stream client gone")
			return
		}
		flusher.Flush()
	}
}

func writeSSE(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// ---- WebSocket ----

const (
	wsWriteWait     = 5 * time.Second
	wsMaxMessage    = 4096
	wsReplyBuffer   = 16
	wsTypeCommit    = "commit"
	wsTypeError     = "error"
	wsTypeCommitted = "committed"
)

// wsInbound is a client message: a pointer event or a programmatic commit.
type wsInbound struct {
	Type    string  `json:"type"` // down, move, up or commit
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Outcome string  `json:"outcome,omitempty"`
}

// wsOutbound is a server message.
type wsOutbound struct {
	Type     string            `json:"type"` // init, frame, decision, activate, committed, error
	Info     *session.Info     `json:"info,omitempty"`
	Frame    *swipe.Frame      `json:"frame,omitempty"`
	Notice   *session.Notice   `json:"notice,omitempty"`
	Accepted *bool             `json:"accepted,omitempty"`
	Error    string            `json:"error,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// handleWebSocket carries raw pointer input in and frames out over one
// connection, so a drag stays on the low-latency path end to end.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := sessionFrom(r)
	frames, notices, cancel := sess.Subscribe()
	telemetry.StreamClients.Inc()

	replies := make(chan wsOutbound, wsReplyBuffer)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.wsReadLoop(conn, sess, replies)
	}()

	defer func() {
		cancel()
		_ = conn.Close()
		<-readDone
		telemetry.StreamClients.Dec()
	}()

	info := sess.Info()
	if err := wsWrite(conn, wsOutbound{Type: sseInit, Info: &info}); err != nil {
		return
	}

	ping := time.NewTicker(s.heartbeat)
	defer ping.Stop()

	for {
		var msg wsOutbound
		select {
		case <-readDone:
			return
		case f, ok := <-frames:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			msg = wsOutbound{Type: sseFrame, Frame: &f}
		case n, ok := <-notices:
			if !ok {
				notices = nil
				continue
			}
			msg = wsOutbound{Type: n.Kind, Notice: &n}
		case msg = <-replies:
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			continue
		}
		if err := wsWrite(conn, msg); err != nil {
			s.log.Debug().Err(err).Str("session", sess.ID()).Msg("websocket client gone")
			return
		}
	}
}

func wsWrite(conn *websocket.Conn, msg wsOutbound) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}

// wsReadLoop applies client messages until the connection fails. Replies are
// best effort: the writer owns the connection, and a full reply buffer drops
// them.
func (s *Server) wsReadLoop(conn *websocket.Conn, sess *session.Session, replies chan<- wsOutbound) {
	conn.SetReadLimit(wsMaxMessage)
	idle := 2 * s.heartbeat
	_ = conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idle))
	})

	reply := func(m wsOutbound) {
		select {
		case replies <- m:
		default:
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(idle))

		var in wsInbound
		if err := json.Unmarshal(data, &in); err != nil {
			reply(wsOutbound{Type: wsTypeError, Error: "invalid JSON"})
			continue
		}

		if in.Type == wsTypeCommit {
			result, outcome := validation.ValidateOutcome(in.Outcome)
			if !result.Valid {
				reply(wsOutbound{Type: wsTypeError, Error: "validation failed", Fields: result.Errors})
				continue
			}
			accepted := sess.Commit(outcome)
			reply(wsOutbound{Type: wsTypeCommitted, Accepted: &accepted})
			continue
		}

		result := validation.ValidatePointer(validation.PointerParams{Type: in.Type, X: in.X, Y: in.Y})
		if !result.Valid {
			reply(wsOutbound{Type: wsTypeError, Error: "validation failed", Fields: result.Errors})
			continue
		}
		_ = sess.Pointer(in.Type, in.X, in.Y)
	}
}
