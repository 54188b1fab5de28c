package livefeed

import (
	"context"
	"sync"
)

// Client wires the channel, the feed and the composer together: inbound
// posts and locally composed posts both go through one FeedRenderer.
type Client struct {
	Manager  *ConnectionManager
	Renderer *FeedRenderer
	Composer *PostComposer

	mu     sync.RWMutex
	onPost func(post Post, shown bool)
}

// NewClient constructs a client with provided config. uploader may be nil.
func NewClient(cfg Config, view View, session Session, uploader Uploader) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := NewFeedStore(cfg.FeedCapacity)
	if err != nil {
		return nil, err
	}
	renderer := NewFeedRenderer(store, view)
	manager := NewConnectionManager(cfg)

	c := &Client{
		Manager:  manager,
		Renderer: renderer,
		Composer: NewPostComposer(session, uploader, manager, renderer),
	}
	manager.OnMessage(c.receive)
	return c, nil
}

// OnPost registers a callback run after every inbound post has been offered
// to the renderer. shown is false for duplicates, such as the echo of a
// post this client composed.
func (c *Client) OnPost(fn func(post Post, shown bool)) {
	c.mu.Lock()
	c.onPost = fn
	c.mu.Unlock()
}

func (c *Client) receive(p Post) {
	shown := c.Renderer.Show(p)
	c.mu.RLock()
	fn := c.onPost
	c.mu.RUnlock()
	if fn != nil {
		fn(p, shown)
	}
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	c.Manager.SetLogger(l)
	c.Composer.SetLogger(l)
	c.Renderer.SetLogger(l)
}

// Connect starts the channel lifecycle.
func (c *Client) Connect(ctx context.Context) error { return c.Manager.Connect(ctx) }

// Post composes, sends and optimistically renders a post.
func (c *Client) Post(ctx context.Context, text string, img *Image) (Post, error) {
	return c.Composer.Compose(ctx, text, img)
}

// Close shuts down the channel.
func (c *Client) Close() error { return c.Manager.Close() }
