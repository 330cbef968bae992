package conn

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Kind identifies one of the per-device channel types.
type Kind string

// Channel kinds. Control carries the command protocol; video and audio
// are relayed media streams with no command traffic.
const (
	KindControl Kind = "control"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
)

// ParseKind maps a URL path segment to a channel kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindControl, KindVideo, KindAudio:
		return Kind(s), nil
	default:
		return "", ErrInvalidKind
	}
}

// Socket is the minimal write-side surface the registry needs from a
// device connection. The production implementation wraps a gorilla
// websocket connection; tests substitute an in-memory fake.
type Socket interface {
	// WriteMessage sends a text frame to the device.
	WriteMessage(data []byte) error

	// Ping sends a websocket ping control frame.
	Ping() error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// wsSocket adapts a gorilla websocket connection to the Socket
// interface. Gorilla connections permit one concurrent writer, so all
// writes are serialised behind a mutex shared by the heartbeat pinger
// and the dispatcher.
type wsSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
}

// NewSocket wraps a gorilla websocket connection. writeTimeout bounds
// every write so a stalled device cannot wedge the heartbeat sweep.
func NewSocket(c *websocket.Conn, writeTimeout time.Duration) Socket {
	return &wsSocket{conn: c, writeTimeout: writeTimeout}
}

func (s *wsSocket) WriteMessage(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSocket) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
}

func (s *wsSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(s.writeTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		err = s.conn.Close()
	})
	return err
}
