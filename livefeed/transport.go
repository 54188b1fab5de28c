package livefeed

import (
	"context"
	"errors"
	"io"

	"github.com/coder/websocket"
	"github.com/vovakirdan/livefeed-go/livefeed/internal"
)

// Channel is one established connection carrying text frames.
type Channel interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, frame []byte) error
	Close() error
}

// Dialer opens Channels. The default dials a websocket; tests substitute
// an in-memory implementation.
type Dialer interface {
	Dial(ctx context.Context, url string) (Channel, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Channel, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Channel, error) { return f(ctx, url) }

type websocketDialer struct {
	cfg Config
}

func (d websocketDialer) Dial(ctx context.Context, url string) (Channel, error) {
	conn, err := internal.Dial(ctx, url, d.cfg.HandshakeTimeout, d.cfg.ReadTimeout, d.cfg.WriteTimeout)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// isExpectedDisconnect reports closures that are not worth a warning.
func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
