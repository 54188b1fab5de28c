package livefeed

import (
	"context"
	"io"
	"strings"
	"time"
)

// Session resolves the authenticated author. Implementations return
// ErrNotAuthenticated (or any error) when no identity is available.
type Session interface {
	Author(ctx context.Context) (string, error)
}

// Uploader stores an image and returns a reference other clients can load.
type Uploader interface {
	Upload(ctx context.Context, img Image) (string, error)
}

// Sender transmits a post over the channel. *ConnectionManager implements it.
type Sender interface {
	Send(ctx context.Context, post Post) error
}

// Image is a file attached to a post.
type Image struct {
	Name string
	Data io.Reader
}

// PostComposer validates user input, builds posts, sends them and renders
// them optimistically.
type PostComposer struct {
	session  Session
	uploader Uploader
	sender   Sender
	renderer *FeedRenderer
	logger   Logger
	now      func() time.Time
}

// NewPostComposer wires a composer. uploader may be nil, in which case
// posts with an image fail with ErrUploadFailed.
func NewPostComposer(session Session, uploader Uploader, sender Sender, renderer *FeedRenderer) *PostComposer {
	return &PostComposer{
		session:  session,
		uploader: uploader,
		sender:   sender,
		renderer: renderer,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger overrides logger (optional).
func (c *PostComposer) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// Compose turns raw input into a sent and rendered Post. On any error
// nothing is sent or rendered.
func (c *PostComposer) Compose(ctx context.Context, rawText string, img *Image) (Post, error) {
	if strings.TrimSpace(rawText) == "" {
		return Post{}, ErrEmptyContent
	}

	author, err := c.session.Author(ctx)
	if err != nil || strings.TrimSpace(author) == "" {
		return Post{}, WrapError(ErrorNotAuthenticated, "no authenticated author", err)
	}

	var imageRef string
	if img != nil {
		if c.uploader == nil {
			return Post{}, NewError(ErrorUploadFailed, "no upload service configured")
		}
		imageRef, err = c.uploader.Upload(ctx, *img)
		if err != nil {
			c.logger.Warn("image upload failed", map[string]any{"file": img.Name, "error": err.Error()})
			return Post{}, WrapError(ErrorUploadFailed, "image upload failed", err)
		}
		if imageRef == "" {
			return Post{}, NewError(ErrorUploadFailed, "upload service returned no image reference")
		}
	}

	post, err := NewPost(author, rawText, imageRef, c.now())
	if err != nil {
		return Post{}, err
	}

	if err := c.sender.Send(ctx, post); err != nil {
		c.logger.Warn("post not sent", map[string]any{"error": err.Error()})
		return Post{}, err
	}

	c.renderer.Show(post)
	return post, nil
}
