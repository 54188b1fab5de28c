package livefeed

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// TimeLayout is the ISO-8601 layout used for createdAt on the wire.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Post is one feed update. Values are immutable; use NewPost to build one.
type Post struct {
	author    string
	content   string
	imageRef  string
	createdAt time.Time
}

// NewPost validates its inputs and returns a fully formed Post.
// createdAt is normalized to UTC with millisecond precision and invalid
// UTF-8 is replaced with U+FFFD, so that a Post survives an encode/decode
// round trip unchanged.
func NewPost(author, content, imageRef string, createdAt time.Time) (Post, error) {
	author = strings.ToValidUTF8(author, "\uFFFD")
	content = strings.ToValidUTF8(content, "\uFFFD")
	imageRef = strings.ToValidUTF8(imageRef, "\uFFFD")
	if strings.TrimSpace(content) == "" {
		return Post{}, ErrEmptyContent
	}
	if strings.TrimSpace(author) == "" {
		return Post{}, ErrNotAuthenticated
	}
	return Post{
		author:    author,
		content:   content,
		imageRef:  imageRef,
		createdAt: createdAt.UTC().Truncate(time.Millisecond),
	}, nil
}

func (p Post) Author() string       { return p.author }
func (p Post) Content() string      { return p.content }
func (p Post) CreatedAt() time.Time { return p.createdAt }

// ImageRef returns the attached asset reference, if any.
func (p Post) ImageRef() (string, bool) { return p.imageRef, p.imageRef != "" }

// Identity is the de-duplication key of the post: author, content and
// createdAt. No server-assigned id exists on the wire.
func (p Post) Identity() string {
	h := sha256.New()
	h.Write([]byte(p.author))
	h.Write([]byte{0})
	h.Write([]byte(p.content))
	h.Write([]byte{0})
	h.Write([]byte(p.createdAt.Format(TimeLayout)))
	return hex.EncodeToString(h.Sum(nil))
}

func (p Post) String() string {
	return p.author + ": " + p.content
}
