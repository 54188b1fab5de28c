package livefeed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// ConnectionManager owns the lifecycle of the feed channel: it dials,
// delivers inbound posts, and redials after every drop.
//
// All callbacks run on the manager's lifecycle goroutine, one at a time.
type ConnectionManager struct {
	cfg        Config
	logger     Logger
	dialer     Dialer
	codec      *Codec
	dispatcher Dispatcher

	// writeMu serializes frame writes so a queue flush is not interleaved
	// with concurrent Sends.
	writeMu sync.Mutex

	mu      sync.Mutex
	state   ConnectionState
	stateCh chan struct{} // closed on every transition
	ch      Channel
	queue   [][]byte
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewConnectionManager constructs a manager with provided config.
// Use DefaultConfig() as a starting point and modify as needed.
func NewConnectionManager(cfg Config) *ConnectionManager {
	return &ConnectionManager{
		cfg:     cfg,
		logger:  noopLogger{},
		dialer:  websocketDialer{cfg: cfg},
		codec:   NewCodec(),
		state:   StateClosed,
		stateCh: make(chan struct{}),
	}
}

// SetLogger overrides logger (optional).
func (m *ConnectionManager) SetLogger(l Logger) {
	if l == nil {
		return
	}
	m.logger = l
}

// SetDialer replaces the websocket dialer. Must be called before Connect.
func (m *ConnectionManager) SetDialer(d Dialer) {
	if d == nil {
		return
	}
	m.dialer = d
}

// OnMessage registers the handler invoked once per decoded inbound post.
func (m *ConnectionManager) OnMessage(fn func(Post)) { m.dispatcher.SetOnMessage(fn) }

// OnStateChange registers callback for state transitions.
func (m *ConnectionManager) OnStateChange(fn func(StateEvent)) { m.dispatcher.SetOnStateChange(fn) }

// OnError registers callback for errors that were logged and recovered from.
func (m *ConnectionManager) OnError(fn func(error)) { m.dispatcher.SetOnError(fn) }

// State returns the current connection state.
func (m *ConnectionManager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// WaitForState blocks until the manager reaches want or ctx is done.
func (m *ConnectionManager) WaitForState(ctx context.Context, want ConnectionState) error {
	for {
		m.mu.Lock()
		state, changed := m.state, m.stateCh
		m.mu.Unlock()
		if state == want {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Connect starts the channel lifecycle and returns without waiting for the
// dial. It is a no-op while the manager is already running.
func (m *ConnectionManager) Connect(ctx context.Context) error {
	if m.cfg.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.done = make(chan struct{})
	m.state = StateConnecting
	m.notifyLocked()
	m.mu.Unlock()

	connectionState.Set(float64(StateConnecting))
	go m.run(runCtx)
	return nil
}

// Send encodes post and writes it as one frame. It does not wait for any
// acknowledgement. When the channel is not open it fails with
// ErrChannelUnavailable, or queues the frame if QueueWhileOffline is set.
func (m *ConnectionManager) Send(ctx context.Context, post Post) error {
	frame, err := m.codec.Encode(post)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.state != StateOpen || m.ch == nil {
		state := m.state
		if m.cfg.QueueWhileOffline && len(m.queue) < m.cfg.OfflineQueueSize {
			m.queue = append(m.queue, frame)
			m.mu.Unlock()
			m.logger.Debug("queued post while offline", map[string]any{"state": state.String()})
			return nil
		}
		m.mu.Unlock()
		sendsRejected.Inc()
		return NewError(ErrorChannelUnavailable, fmt.Sprintf("channel is %s", state))
	}
	ch := m.ch
	m.mu.Unlock()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.write(ctx, ch, frame)
}

// Close shuts down the manager and closes the channel. The manager can be
// connected again afterwards.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	cancel, done, ch := m.cancel, m.done, m.ch
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	if ch != nil {
		_ = ch.Close()
	}
	<-done
	return nil
}

func (m *ConnectionManager) run(ctx context.Context) {
	defer close(m.done)
	m.dispatcher.dispatchState(StateEvent{OldState: StateClosed, NewState: StateConnecting})

	attempt := 0
	for {
		m.logger.Info("connecting to feed", map[string]any{"url": m.cfg.URL, "attempt": attempt})
		ch, err := m.dialer.Dial(ctx, m.cfg.URL)
		if err != nil {
			if ctx.Err() == nil {
				err = WrapError(ErrorTransport, "dialing failed", err)
				m.logger.Warn("dialing failed", map[string]any{"error": err.Error(), "attempt": attempt})
				m.dispatcher.fireError(err)
			}
		} else {
			attempt = 0
			if m.open(ctx, ch) {
				err = m.readLoop(ctx, ch)
			}
			m.detach(ch)
		}

		if ctx.Err() != nil {
			m.transition(StateClosed, nil)
			return
		}

		attempt++
		if m.cfg.MaxReconnectTries > 0 && attempt > m.cfg.MaxReconnectTries {
			m.logger.Error("giving up reconnecting", map[string]any{"attempts": attempt - 1})
			m.transition(StateClosed, err)
			m.mu.Lock()
			if m.cancel != nil {
				m.cancel()
				m.cancel = nil
			}
			m.mu.Unlock()
			return
		}

		delay := m.reconnectDelay(attempt)
		m.transition(StateReconnecting, err)
		reconnectsScheduled.Inc()
		m.logger.Info("reconnect scheduled", map[string]any{"delay": delay.String(), "attempt": attempt})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.transition(StateClosed, nil)
			return
		case <-timer.C:
		}
		m.transition(StateConnecting, nil)
	}
}

// open publishes ch as the current channel, flushes queued frames and
// reports false if the manager was closed meanwhile.
func (m *ConnectionManager) open(ctx context.Context, ch Channel) bool {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return false
	}
	from := m.state
	m.state = StateOpen
	m.ch = ch
	queued := m.queue
	m.queue = nil
	m.writeMu.Lock()
	m.notifyLocked()
	m.mu.Unlock()

	for i, frame := range queued {
		if err := m.write(ctx, ch, frame); err != nil {
			m.logger.Warn("dropping queued posts after write failure", map[string]any{"dropped": len(queued) - i})
			break
		}
	}
	m.writeMu.Unlock()

	connectionState.Set(float64(StateOpen))
	m.logger.Info("connected to feed", map[string]any{"flushed": len(queued)})
	m.dispatcher.dispatchState(StateEvent{OldState: from, NewState: StateOpen})
	return true
}

func (m *ConnectionManager) detach(ch Channel) {
	m.mu.Lock()
	if m.ch == ch {
		m.ch = nil
	}
	m.mu.Unlock()
	_ = ch.Close()
}

func (m *ConnectionManager) readLoop(ctx context.Context, ch Channel) error {
	for {
		frame, err := ch.Read(ctx)
		if err != nil {
			if isExpectedDisconnect(ctx, err) {
				m.logger.Info("feed channel closed", nil)
				return WrapError(ErrorChannelClosed, "channel closed", err)
			}
			err = WrapError(ErrorTransport, "read failed", err)
			m.logger.Warn("read loop exit", map[string]any{"error": err.Error()})
			m.dispatcher.fireError(err)
			return err
		}
		framesReceived.Inc()
		if err := m.dispatcher.DispatchFrame(m.codec, frame); err != nil {
			framesDecodeFailed.Inc()
			m.logger.Warn("discarding undecodable frame", map[string]any{"error": err.Error(), "bytes": len(frame)})
		}
	}
}

// write must be called with writeMu held.
func (m *ConnectionManager) write(ctx context.Context, ch Channel, frame []byte) error {
	if err := ch.Write(ctx, frame); err != nil {
		// the read loop observes the close and schedules the reconnect
		_ = ch.Close()
		return WrapError(ErrorTransport, "failed to write frame", err)
	}
	framesSent.Inc()
	return nil
}

func (m *ConnectionManager) transition(to ConnectionState, cause error) {
	m.mu.Lock()
	from := m.state
	if from == to {
		m.mu.Unlock()
		return
	}
	m.state = to
	m.notifyLocked()
	m.mu.Unlock()

	connectionState.Set(float64(to))
	m.dispatcher.dispatchState(StateEvent{OldState: from, NewState: to, Error: cause})
}

func (m *ConnectionManager) notifyLocked() {
	close(m.stateCh)
	m.stateCh = make(chan struct{})
}

// reconnectDelay is fixed unless MaxReconnectDelay enables doubling backoff.
func (m *ConnectionManager) reconnectDelay(attempt int) time.Duration {
	delay := m.cfg.ReconnectDelay
	if ceiling := m.cfg.MaxReconnectDelay; ceiling > delay {
		for i := 1; i < attempt && delay < ceiling; i++ {
			delay *= 2
		}
		delay = min(delay, ceiling)
	}
	if m.cfg.ReconnectJitter > 0 {
		delay += rand.N(m.cfg.ReconnectJitter)
	}
	return delay
}
