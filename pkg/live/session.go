package live

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SessionConfig bounds one connection's IO.
type SessionConfig struct {
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	PingInterval time.Duration
	Logger       *slog.Logger
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Session is one connected client receiving live fragment updates. It
// satisfies hydrate.UpdateSink, so hydrated instances can push straight
// into the socket.
type Session struct {
	ID        string
	CreatedAt time.Time

	conn   *websocket.Conn
	config SessionConfig
	logger *slog.Logger

	mu     sync.Mutex // protects conn writes
	closed atomic.Bool

	framesSent atomic.Uint64
	bytesSent  atomic.Uint64

	done chan struct{}
}

// NewSession wraps an upgraded connection.
func NewSession(conn *websocket.Conn, config SessionConfig) *Session {
	config = config.withDefaults()
	id := uuid.NewString()
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		conn:      conn,
		config:    config,
		logger:    config.Logger.With("session", id),
		done:      make(chan struct{}),
	}
}

// Replace implements hydrate.UpdateSink: it ships a replace-fragment
// frame for the given element.
func (s *Session) Replace(elementID, html string) error {
	return s.Send(Frame{Type: FrameReplace, ElementID: elementID, HTML: html})
}

// SendError notifies the client of an instance failure.
func (s *Session) SendError(msg string) error {
	return s.Send(Frame{Type: FrameError, Message: msg})
}

// Send encodes and writes one frame. Safe for concurrent use.
func (s *Session) Send(f Frame) error {
	if s.closed.Load() {
		return net.ErrClosed
	}
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	s.framesSent.Add(1)
	s.bytesSent.Add(uint64(len(data)))
	return nil
}

// ReadLoop consumes inbound frames until the connection drops. Clients
// only send pings; anything else is logged and ignored. Blocks, so run
// it on its own goroutine (or use it as the handler's final call).
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		frame, err := DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("bad frame", "error", err)
			continue
		}
		switch frame.Type {
		case FramePing:
			if err := s.Send(Frame{Type: FramePong}); err != nil {
				return
			}
		case FramePong:
			// Answer to our own ping loop.
		default:
			s.logger.Warn("unexpected client frame", "type", frame.Type)
		}
	}
}

// PingLoop probes the peer until the session closes. Run on its own
// goroutine.
func (s *Session) PingLoop() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.Send(Frame{Type: FramePing}); err != nil {
				s.Close()
				return
			}
		}
	}
}

// Close tears the connection down. Idempotent.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

// FramesSent reports how many frames this session has written.
func (s *Session) FramesSent() uint64 { return s.framesSent.Load() }

// BytesSent reports the total encoded bytes written.
func (s *Session) BytesSent() uint64 { return s.bytesSent.Load() }
