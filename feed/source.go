// Package feed owns the client's connection to the FlowSync traffic
// feed. A Manager reads frames from a Source one at a time, decodes each
// into a traffic.Event and hands it to a Sink, usually a *traffic.Store.
package feed

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// Source delivers raw frames from one established connection.
type Source interface {
	// ReadFrame blocks until the next frame arrives or the connection
	// fails. Close unblocks a pending ReadFrame.
	ReadFrame(ctx context.Context) ([]byte, error)

	// Close releases the connection. It is safe to call more than
	// once and concurrently with ReadFrame.
	Close() error

	// Endpoint names the remote end for diagnostics.
	Endpoint() string
}

// isExpectedClose reports whether err is an orderly end of the
// connection rather than a transport failure.
func isExpectedClose(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, redis.ErrClosed) {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
