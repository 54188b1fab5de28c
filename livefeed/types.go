package livefeed

// Frame is the wire envelope carried by one channel text frame.
// Field names are fixed by the wire contract.
type Frame struct {
	Author    string  `json:"author" validate:"required"`
	Content   string  `json:"content" validate:"required"`
	ImageRef  *string `json:"imageRef"`
	CreatedAt string  `json:"createdAt" validate:"required"`
}

func frameFromPost(p Post) Frame {
	f := Frame{
		Author:    p.author,
		Content:   p.content,
		CreatedAt: p.createdAt.Format(TimeLayout),
	}
	if ref, ok := p.ImageRef(); ok {
		f.ImageRef = &ref
	}
	return f
}
