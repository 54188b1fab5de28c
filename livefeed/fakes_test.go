package livefeed

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeChannel is an in-memory Channel driven by the test.
type fakeChannel struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case f := <-c.in:
		return f, nil
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeChannel) Write(_ context.Context, frame []byte) error {
	select {
	case <-c.closed:
		return errors.New("write on closed channel")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, frame)
	return nil
}

func (c *fakeChannel) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeChannel) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

// fakeDialer hands out fakeChannels and can be told to fail.
type fakeDialer struct {
	mu       sync.Mutex
	fail     int
	attempts int
	times    []time.Time
	dialed   chan *fakeChannel
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{dialed: make(chan *fakeChannel, 32)}
}

func (d *fakeDialer) Dial(context.Context, string) (Channel, error) {
	d.mu.Lock()
	d.attempts++
	d.times = append(d.times, time.Now())
	if d.fail > 0 {
		d.fail--
		d.mu.Unlock()
		return nil, errors.New("connection refused")
	}
	d.mu.Unlock()
	ch := newFakeChannel()
	select {
	case d.dialed <- ch:
	default:
	}
	return ch, nil
}

func (d *fakeDialer) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

// DialTimes returns when each Dial call started.
func (d *fakeDialer) DialTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.times...)
}

func nextChannel(t *testing.T, d *fakeDialer) *fakeChannel {
	t.Helper()
	select {
	case ch := <-d.dialed:
		return ch
	case <-time.After(2 * time.Second):
		t.Fatalf("no dial observed")
		return nil
	}
}

// recordingView keeps entries in the order they were prepended.
type recordingView struct {
	mu      sync.Mutex
	entries []Entry
}

func (v *recordingView) Prepend(e Entry) {
	v.mu.Lock()
	v.entries = append(v.entries, e)
	v.mu.Unlock()
}

func (v *recordingView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

type recordingSender struct {
	mu    sync.Mutex
	posts []Post
	err   error
}

func (s *recordingSender) Send(_ context.Context, p Post) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.posts = append(s.posts, p)
	s.mu.Unlock()
	return nil
}

type stubUploader struct {
	ref   string
	err   error
	calls int
}

func (u *stubUploader) Upload(_ context.Context, img Image) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	_, _ = io.ReadAll(img.Data)
	return u.ref, nil
}

func mustPost(t *testing.T, author, content, imageRef string, at time.Time) Post {
	t.Helper()
	p, err := NewPost(author, content, imageRef, at)
	if err != nil {
		t.Fatalf("NewPost: %v", err)
	}
	return p
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.URL = "ws://feed.test/ws"
	cfg.ReconnectDelay = 10 * time.Millisecond
	return cfg
}
