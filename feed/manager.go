package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/harkirath1511/AV-TFOS/traffic"
)

// ErrClosed is returned by Run when the Manager was closed before Run
// started.
var ErrClosed = errors.New("feed: manager closed")

// statusBuffer is the capacity of the Status channel.
const statusBuffer = 16

// Sink consumes decoded events. *traffic.Store is the usual Sink.
type Sink interface {
	Apply(traffic.Event)
}

// State is a connection lifecycle state.
type State string

const (
	StateConnected    State = "connected"
	StateErrored      State = "errored"
	StateDisconnected State = "disconnected"
)

// Status is one lifecycle notification. Err is set for StateErrored and
// for a StateDisconnected caused by the remote end.
type Status struct {
	State    State
	Endpoint string
	Session  string
	Err      error
}

// Stats counts frames seen by a Manager.
type Stats struct {
	Received uint64
	Applied  uint64
	Dropped  uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for lifecycle and decode diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Manager pumps frames from one Source into a Sink. Frames are decoded
// and applied one at a time, synchronously, in arrival order; a slow
// Sink leaves frames queued in the transport.
type Manager struct {
	source  Source
	sink    Sink
	logger  *slog.Logger
	session string
	status  chan Status

	closeOnce  sync.Once
	closed     chan struct{}
	closeErr   error
	statusOnce sync.Once

	received atomic.Uint64
	applied  atomic.Uint64
	dropped  atomic.Uint64
}

// New wraps an established source. The Manager owns source from here on
// and closes it when Run returns or Close is called.
func New(source Source, sink Sink, opts ...Option) *Manager {
	m := &Manager{
		source:  source,
		sink:    sink,
		logger:  slog.Default(),
		session: uuid.NewString(),
		status:  make(chan Status, statusBuffer),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("endpoint", source.Endpoint(), "session", m.session)
	m.logger.Info("feed connected")
	m.publish(Status{State: StateConnected})
	return m
}

// Connect dials the WebSocket endpoint once and returns a Manager that
// forwards its events to sink.
func Connect(ctx context.Context, endpoint string, sink Sink, opts ...Option) (*Manager, error) {
	source, err := DialWebSocket(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	m := New(source, sink, opts...)
	source.logger = m.logger
	return m, nil
}

// Status returns the lifecycle channel. Notifications are dropped when
// the channel is full so that a slow observer never stalls the feed.
// The channel is closed after the final notification, when Run returns.
func (m *Manager) Status() <-chan Status {
	return m.status
}

// Session identifies this connection in logs and statuses.
func (m *Manager) Session() string {
	return m.session
}

func (m *Manager) Stats() Stats {
	return Stats{
		Received: m.received.Load(),
		Applied:  m.applied.Load(),
		Dropped:  m.dropped.Load(),
	}
}

// Run reads frames until the connection ends. It returns nil when the
// caller ended it through Close or ctx, and the transport error
// otherwise. Frames read before the connection ended are still applied.
func (m *Manager) Run(ctx context.Context) error {
	if m.isClosed() {
		m.endStatus()
		return ErrClosed
	}
	stop := context.AfterFunc(ctx, func() { m.Close() })
	defer stop()

	for {
		frame, err := m.source.ReadFrame(ctx)
		if err != nil {
			return m.finish(ctx, err)
		}
		m.HandleFrame(frame)
	}
}

// HandleFrame decodes one frame and applies it to the sink. A frame that
// does not decode is logged and dropped; the error is returned for
// callers that want it.
func (m *Manager) HandleFrame(frame []byte) error {
	m.received.Add(1)
	event, err := traffic.Decode(frame)
	if err != nil {
		m.dropped.Add(1)
		m.logger.Warn("dropping feed frame", "error", err, "bytes", len(frame))
		return err
	}
	m.sink.Apply(event)
	m.applied.Add(1)
	return nil
}

// Close ends the connection. It is idempotent and safe to call from any
// goroutine; a concurrent Run returns nil.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.closed)
		m.closeErr = m.source.Close()
	})
	return m.closeErr
}

func (m *Manager) finish(ctx context.Context, readErr error) error {
	if m.isClosed() || ctx.Err() != nil {
		m.Close()
		m.logger.Info("feed disconnected")
		m.endStatus(Status{State: StateDisconnected})
		return nil
	}

	m.Close()
	if isExpectedClose(readErr) {
		m.logger.Info("feed closed by remote", "error", readErr)
		m.endStatus(Status{State: StateDisconnected, Err: readErr})
		return fmt.Errorf("%s closed the connection: %w", m.source.Endpoint(), readErr)
	}

	m.logger.Error("feed connection error", "error", readErr)
	m.endStatus(
		Status{State: StateErrored, Err: readErr},
		Status{State: StateDisconnected, Err: readErr},
	)
	return fmt.Errorf("reading %s: %w", m.source.Endpoint(), readErr)
}

func (m *Manager) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// endStatus publishes the final notifications and closes the Status
// channel. Only the first call has any effect.
func (m *Manager) endStatus(final ...Status) {
	m.statusOnce.Do(func() {
		for _, status := range final {
			m.publish(status)
		}
		close(m.status)
	})
}

func (m *Manager) publish(status Status) {
	status.Endpoint = m.source.Endpoint()
	status.Session = m.session
	select {
	case m.status <- status:
	default:
		m.logger.Debug("status channel full, dropping notification", "state", status.State)
	}
}
