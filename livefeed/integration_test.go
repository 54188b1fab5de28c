package livefeed_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livefeed-go/livefeed"
	"github.com/vovakirdan/livefeed-go/relay"
)

func startRelay(t *testing.T) (*relay.Server, string) {
	t.Helper()
	srv := relay.NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)), relay.DefaultOptions())
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

type feedClient struct {
	*livefeed.Client
	view    *livefeed.HTMLView
	inbound chan received
	states  chan livefeed.StateEvent
}

type received struct {
	post  livefeed.Post
	shown bool
}

func newFeedClient(t *testing.T, url, author string) *feedClient {
	t.Helper()
	cfg := livefeed.DefaultConfig()
	cfg.URL = url
	cfg.ReconnectDelay = 20 * time.Millisecond

	view, err := livefeed.NewHTMLView("")
	require.NoError(t, err)
	c, err := livefeed.NewClient(cfg, view, livefeed.StaticSession(author), nil)
	require.NoError(t, err)

	fc := &feedClient{
		Client:  c,
		view:    view,
		inbound: make(chan received, 16),
		states:  make(chan livefeed.StateEvent, 64),
	}
	c.OnPost(func(p livefeed.Post, shown bool) {
		fc.inbound <- received{post: p, shown: shown}
	})
	c.Manager.OnStateChange(func(ev livefeed.StateEvent) { fc.states <- ev })

	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	fc.waitOpen(t)
	return fc
}

func (fc *feedClient) waitOpen(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, fc.Manager.WaitForState(ctx, livefeed.StateOpen))
}

func (fc *feedClient) nextInbound(t *testing.T) received {
	t.Helper()
	select {
	case r := <-fc.inbound:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("no inbound post")
		return received{}
	}
}

func TestEchoedPostIsShownOnce(t *testing.T) {
	srv, url := startRelay(t)
	alice := newFeedClient(t, url, "alice")
	bob := newFeedClient(t, url, "bob")
	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 2 }, 3*time.Second, 10*time.Millisecond)

	sent, err := alice.Post(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Len(t, alice.view.Posts(), 1)

	echo := alice.nextInbound(t)
	// the echo may beat the optimistic render; either way one entry results
	assert.Equal(t, sent, echo.post)

	delivered := bob.nextInbound(t)
	assert.Equal(t, sent, delivered.post)
	assert.True(t, delivered.shown)

	assert.Len(t, alice.view.Posts(), 1)
	assert.Equal(t, 1, alice.Renderer.Store().Len())
	assert.Len(t, bob.view.Posts(), 1)
	assert.Contains(t, bob.view.HTML(), ">hi<")
}

func TestReconnectAfterRelayDrop(t *testing.T) {
	srv, url := startRelay(t)
	alice := newFeedClient(t, url, "alice")

	for i := 0; i < 2; i++ {
		srv.Hub().DisconnectAll()
		waitForState(t, alice, livefeed.StateReconnecting)
		alice.waitOpen(t)
	}
	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 1 }, 3*time.Second, 10*time.Millisecond)

	_, err := alice.Post(context.Background(), "back online", nil)
	require.NoError(t, err)
	assert.Equal(t, "back online", alice.nextInbound(t).post.Content())
}

func waitForState(t *testing.T, fc *feedClient, want livefeed.ConnectionState) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-fc.states:
			if ev.NewState == want {
				return
			}
		case <-deadline:
			t.Fatalf("state %s not observed", want)
		}
	}
}
