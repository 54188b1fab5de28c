package livefeed

import (
	"fmt"
	"io"
	"time"
)

// TextView writes one line per post. A terminal cannot insert above earlier
// output, so newer posts appear below; the line stream is still in
// insertion order.
type TextView struct {
	w          io.Writer
	TimeFormat string
	Location   *time.Location
}

func NewTextView(w io.Writer) *TextView {
	return &TextView{w: w, TimeFormat: time.TimeOnly, Location: time.Local}
}

func (v *TextView) Prepend(e Entry) {
	p := e.Post
	line := fmt.Sprintf("[%s] %s: %s", p.CreatedAt().In(v.Location).Format(v.TimeFormat), p.Author(), p.Content())
	if ref, ok := p.ImageRef(); ok {
		line += " [image " + ref + "]"
	}
	fmt.Fprintln(v.w, line)
}
