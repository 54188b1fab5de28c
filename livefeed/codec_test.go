package livefeed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec()
	at := time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.UTC)

	for _, p := range []Post{
		mustPost(t, "alice", "hi", "", at),
		mustPost(t, "bob", "with image", "/uploads/cat.png", at),
		mustPost(t, "карл", "  unicode & <tags>  ", "", at),
		mustPost(t, "alice", "caf\xe9", "", at),
		mustPost(t, "b\xffob", "\xe9\xe9 latin-1", "/uploads/\xfe.png", at),
	} {
		frame, err := c.Encode(p)
		require.NoError(t, err)
		got, err := c.Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestCodecWireFormat(t *testing.T) {
	c := NewCodec()
	p := mustPost(t, "alice", "hi", "", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	frame, err := c.Encode(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(frame, &raw))
	assert.Equal(t, "alice", raw["author"])
	assert.Equal(t, "hi", raw["content"])
	assert.Contains(t, raw, "imageRef")
	assert.Nil(t, raw["imageRef"])
	assert.Equal(t, "2024-01-01T00:00:00.000Z", raw["createdAt"])
}

func TestCodecDecodeForeignFrame(t *testing.T) {
	c := NewCodec()
	got, err := c.Decode([]byte(`{"author":"alice","content":"hi","imageRef":null,"createdAt":"2024-01-01T00:00:00Z"}`))
	require.NoError(t, err)

	assert.Equal(t, mustPost(t, "alice", "hi", "", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), got)
	_, hasImage := got.ImageRef()
	assert.False(t, hasImage)
}

func TestCodecDecodeRejects(t *testing.T) {
	c := NewCodec()
	frames := map[string]string{
		"not json":        `hello`,
		"array":           `[1,2]`,
		"missing author":  `{"content":"hi","createdAt":"2024-01-01T00:00:00Z"}`,
		"missing content": `{"author":"a","createdAt":"2024-01-01T00:00:00Z"}`,
		"missing time":    `{"author":"a","content":"hi"}`,
		"bad time":        `{"author":"a","content":"hi","createdAt":"yesterday"}`,
		"blank content":   `{"author":"a","content":"   ","createdAt":"2024-01-01T00:00:00Z"}`,
	}
	for name, frame := range frames {
		_, err := c.Decode([]byte(frame))
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrDecode, name)
	}
}

func TestCodecEncodeZeroPost(t *testing.T) {
	_, err := NewCodec().Encode(Post{})
	require.Error(t, err)
}
