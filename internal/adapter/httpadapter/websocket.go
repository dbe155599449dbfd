package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/couchcryptid/event-risk-client/internal/adapter/forecast"
	"github.com/couchcryptid/event-risk-client/internal/session"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// Outbound frame types.
const (
	frameView  = "view"
	frameError = "error"
)

type frame struct {
	Type  string        `json:"type"`
	View  *session.View `json:"view,omitempty"`
	Error string        `json:"error,omitempty"`
}

// handleWebSocket binds one connection to one session. Inbound frames are
// session.Event values; outbound frames carry the latest view or an error
// for a rejected event.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Only the newest view matters; older undelivered ones are dropped.
	views := make(chan session.View, 1)
	errs := make(chan string, 8)
	publish := func(v session.View) {
		select {
		case <-views:
		default:
		}
		views <- v
	}

	ctx := forecast.WithOrigin(r.Context(), requestOrigin(r))
	sess, err := s.sessions.Open(ctx, publish)
	if err != nil {
		s.logger.Warn("session rejected", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(writeWait))
		return
	}
	defer s.sessions.Release(sess)
	logger := s.logger.With("session_id", sess.ID())

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(conn, sess.View(), views, errs, done, logger)
	}()

	s.readLoop(conn, sess, errs, logger)
	close(done)
	<-writerDone
}

func (s *Server) readLoop(conn *websocket.Conn, sess *session.Session, errs chan<- string, logger *slog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", "error", err)
			}
			return
		}

		var ev session.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			sendError(errs, "malformed event")
			continue
		}
		if err := sess.Apply(ev); err != nil {
			if errors.Is(err, session.ErrInvalidEvent) {
				logger.Debug("event rejected", "type", ev.Type, "error", err)
			}
			sendError(errs, err.Error())
		}
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, initial session.View, views <-chan session.View, errs <-chan string, done <-chan struct{}, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(f frame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(f); err != nil {
			logger.Debug("websocket write error", "error", err)
			return false
		}
		return true
	}

	if !write(frame{Type: frameView, View: &initial}) {
		return
	}
	for {
		select {
		case v := <-views:
			if !write(frame{Type: frameView, View: &v}) {
				return
			}
		case msg := <-errs:
			if !write(frame{Type: frameError, Error: msg}) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func sendError(errs chan<- string, msg string) {
	select {
	case errs <- msg:
	default:
	}
}

// requestOrigin is the page origin the forecast client routes relative to:
// the Origin header, else the Host the socket was opened against.
func requestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" && o != "null" {
		return o
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
