package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeGrace bounds how long Close waits to send the close frame.
const closeGrace = time.Second

// WebSocketSource reads text frames from a FlowSync /ws endpoint. The
// connection is receive-only.
type WebSocketSource struct {
	conn     *websocket.Conn
	endpoint string
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// DialWebSocket makes exactly one connection attempt to endpoint. A nil
// dialer means websocket.DefaultDialer.
func DialWebSocket(ctx context.Context, endpoint string, dialer *websocket.Dialer) (*WebSocketSource, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	return &WebSocketSource{conn: conn, endpoint: endpoint, logger: slog.Default()}, nil
}

// ReadFrame returns the payload of the next text frame. The feed is
// UTF-8 text only, so binary frames are skipped. Control frames are
// handled by the websocket library and never surface here.
func (s *WebSocketSource) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage {
			return payload, nil
		}
		s.logger.Debug("skipping non-text frame", "message_type", messageType, "bytes", len(payload))
	}
}

// Close sends a normal-closure frame and closes the connection.
func (s *WebSocketSource) Close() error {
	s.closeOnce.Do(func() {
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		// The peer may already be gone; the close frame is best effort.
		_ = s.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(closeGrace))
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *WebSocketSource) Endpoint() string { return s.endpoint }
