// Package live streams state snapshots to websocket clients.
package live

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"robot-bridge/backend/pkg/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Source produces the values a Streamer sends: the current one on connect, then every change.
type Source[T any] interface {
	Snapshot() T
	Subscribe() (<-chan T, func())
}

// Streamer is an http.Handler that upgrades to a websocket and writes every value from its
// Source as a JSON text message. Clients are not expected to send anything.
type Streamer[T any] struct {
	l        *slog.Logger
	src      Source[T]
	upgrader websocket.Upgrader
	clients  atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

func NewStreamer[T any](l *slog.Logger, src Source[T]) *Streamer[T] {
	return &Streamer[T]{
		l:   l.With(slog.String("component", "live")),
		src: src,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		done: make(chan struct{}),
	}
}

// Clients returns the number of open streams.
func (s *Streamer[T]) Clients() int {
	return int(s.clients.Load())
}

// Close ends every open stream. Hijacked connections are not closed by http.Server.Shutdown.
func (s *Streamer[T]) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Streamer[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Upgrade writes the error response itself
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.l.Warn("Websocket upgrade failed", utils.ErrAttr(err))
		return
	}

	updates, cancel := s.src.Subscribe()
	defer cancel()

	s.clients.Add(1)
	defer s.clients.Add(-1)

	s.l.Info("Live client connected", slog.String("remote", r.RemoteAddr), slog.Int("clients", s.Clients()))

	closed := make(chan struct{})
	go s.readPump(conn, closed)

	s.writePump(conn, updates, closed)

	s.l.Info("Live client disconnected", slog.String("remote", r.RemoteAddr))
}

// readPump consumes pongs and close frames and reports when the peer is gone.
func (s *Streamer[T]) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer of conn.
func (s *Streamer[T]) writePump(conn *websocket.Conn, updates <-chan T, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		utils.LogOnError(s.l, conn.Close, "failed to close websocket")
	}()

	if err := s.write(conn, s.src.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case v, ok := <-updates:
			if !ok {
				return
			}

			if err := s.write(conn, v); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))

			return

		case <-closed:
			return
		}
	}
}

func (s *Streamer[T]) write(conn *websocket.Conn, v T) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := conn.WriteJSON(v); err != nil {
		s.l.Debug("Failed to write live update", utils.ErrAttr(err))

		return err
	}

	return nil
}
