// internal/transport/link.go
//
// Websocket link between a peer and the relay.
// Responsibilities:
//   - Send protocol messages (game.Transport) and raw frames (relay side).
//   - Read frames and hand them to a single consumer in arrival order.
//
// Notes:
//   - gorilla/websocket allows one concurrent writer; writes are serialized
//     here so the game loop and the relay can share a Link.
//   - Once the connection fails or is closed, Send reports false forever.

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/shakiller/shiphexwar/internal/protocol"
)

const writeWait = 10 * time.Second

var ErrClosed = errors.New("link closed")

type Link struct {
	conn      *websocket.Conn
	wmu       sync.Mutex
	down      atomic.Bool
	closeOnce sync.Once
	log       zerolog.Logger
}

// New wraps an established connection.
func New(conn *websocket.Conn, log zerolog.Logger) *Link {
	return &Link{conn: conn, log: log}
}

// Dial connects to a relay websocket URL (ws:// or wss://).
func Dial(ctx context.Context, url string, log zerolog.Logger) (*Link, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return New(conn, log), nil
}

// Send encodes and writes m. It reports false when the link is down.
func (l *Link) Send(m protocol.Message) bool {
	data, err := protocol.Encode(m)
	if err != nil {
		l.log.Warn().Err(err).Str("type", string(m.Type)).Msg("refusing to send")
		return false
	}
	if err := l.WriteFrame(data); err != nil {
		l.log.Debug().Err(err).Str("type", string(m.Type)).Msg("send failed")
		return false
	}
	return true
}

// WriteFrame writes one text frame verbatim.
func (l *Link) WriteFrame(data []byte) error {
	if l.down.Load() {
		return ErrClosed
	}
	l.wmu.Lock()
	defer l.wmu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		l.down.Store(true)
		return err
	}
	return nil
}

// Frames reads text frames until the connection ends or ctx is done, calling
// fn for each one on the calling goroutine. The link is closed on return.
func (l *Link) Frames(ctx context.Context, fn func([]byte)) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()
	defer l.Close()

	for {
		kind, data, err := l.conn.ReadMessage()
		if err != nil {
			l.down.Store(true)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}
		fn(data)
	}
}

// Run decodes frames into messages for handler. Malformed frames are logged
// and skipped.
func (l *Link) Run(ctx context.Context, handler func(protocol.Message)) error {
	return l.Frames(ctx, func(data []byte) {
		m, err := protocol.Decode(data)
		if err != nil {
			l.log.Warn().Err(err).Msg("dropping frame")
			return
		}
		handler(m)
	})
}

// Close sends a close frame and shuts the connection. Safe to call twice.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		wasUp := !l.down.Swap(true)
		l.wmu.Lock()
		if wasUp {
			_ = l.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		}
		l.wmu.Unlock()
		err = l.conn.Close()
	})
	return err
}

// Up reports whether the link can still send.
func (l *Link) Up() bool { return !l.down.Load() }
