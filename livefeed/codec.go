package livefeed

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// Codec converts Posts to and from channel frames.
type Codec struct {
	validate *validator.Validate
}

// NewCodec returns a JSON frame codec.
func NewCodec() *Codec {
	return &Codec{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Encode serializes p into a single text frame.
func (c *Codec) Encode(p Post) ([]byte, error) {
	if p.author == "" || p.content == "" {
		return nil, NewError(ErrorSerialization, "refusing to encode zero post")
	}
	data, err := json.Marshal(frameFromPost(p))
	if err != nil {
		return nil, WrapError(ErrorSerialization, "failed to marshal post", err)
	}
	return data, nil
}

// Decode parses a frame into a Post. Every failure is an ErrorDecode error.
func (c *Codec) Decode(frame []byte) (Post, error) {
	var f Frame
	if err := json.Unmarshal(frame, &f); err != nil {
		return Post{}, WrapError(ErrorDecode, "frame is not a JSON object", err)
	}
	if err := c.validate.Struct(f); err != nil {
		return Post{}, WrapError(ErrorDecode, "frame is missing mandatory fields", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, f.CreatedAt)
	if err != nil {
		return Post{}, WrapError(ErrorDecode, "createdAt is not an ISO-8601 timestamp", err)
	}
	var imageRef string
	if f.ImageRef != nil {
		imageRef = *f.ImageRef
	}
	p, err := NewPost(f.Author, f.Content, imageRef, createdAt)
	if err != nil {
		return Post{}, WrapError(ErrorDecode, "frame does not describe a valid post", err)
	}
	return p, nil
}
