package livefeed

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var postTemplate = template.Must(template.New("post").Parse(
	`<div class="post_main">` +
		`<span class="post_top"><p class="post_user">{{.Author}}</p></span>` +
		`<span class="post_content"><p class="post_body_text">{{.Content}}</p>` +
		`{{if .ImageURL}}<img class="post_body_image" src="{{.ImageURL}}">{{end}}</span>` +
		`<span class="post_footer"><p class="post_footer_text">{{.Time}}</p></span>` +
		`</div>`))

// HTMLView keeps the feed as sanitized HTML fragments, newest first.
type HTMLView struct {
	mu        sync.Mutex
	base      *url.URL
	policy    *bluemonday.Policy
	logger    Logger
	capacity  int      // 0 keeps everything
	fragments []string // oldest first
}

// NewHTMLView resolves relative image references against assetBase, which
// may be empty.
func NewHTMLView(assetBase string) (*HTMLView, error) {
	v := &HTMLView{policy: bluemonday.UGCPolicy(), logger: noopLogger{}}
	v.policy.AllowAttrs("class").Globally()
	if assetBase != "" {
		u, err := url.Parse(assetBase)
		if err != nil {
			return nil, WrapError(ErrorInvalidConfig, "invalid asset base URL", err)
		}
		v.base = u
	}
	return v, nil
}

// SetLogger overrides logger (optional).
func (v *HTMLView) SetLogger(l Logger) {
	if l == nil {
		return
	}
	v.mu.Lock()
	v.logger = l
	v.mu.Unlock()
}

// SetCapacity bounds the number of fragments kept; older ones are dropped.
func (v *HTMLView) SetCapacity(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.capacity = max(n, 0)
	v.trimLocked()
}

func (v *HTMLView) Prepend(e Entry) {
	p := e.Post
	data := struct {
		Author, Content, ImageURL, Time string
	}{
		Author:  p.Author(),
		Content: p.Content(),
		Time:    p.CreatedAt().Format(TimeLayout),
	}
	if ref, ok := p.ImageRef(); ok {
		data.ImageURL = v.resolve(ref)
	}

	var buf bytes.Buffer
	if err := postTemplate.Execute(&buf, data); err != nil {
		v.mu.Lock()
		logger := v.logger
		v.mu.Unlock()
		logger.Error("failed to render post", map[string]any{"id": e.ID, "seq": e.Seq, "error": err.Error()})
		return
	}
	fragment := v.policy.Sanitize(buf.String())

	v.mu.Lock()
	v.fragments = append(v.fragments, fragment)
	v.trimLocked()
	v.mu.Unlock()
}

func (v *HTMLView) trimLocked() {
	if v.capacity > 0 && len(v.fragments) > v.capacity {
		v.fragments = append([]string(nil), v.fragments[len(v.fragments)-v.capacity:]...)
	}
}

// Posts returns the rendered fragments newest first.
func (v *HTMLView) Posts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.fragments))
	for i, f := range v.fragments {
		out[len(v.fragments)-1-i] = f
	}
	return out
}

// HTML returns the whole feed container.
func (v *HTMLView) HTML() string {
	return `<div id="postContainer">` + strings.Join(v.Posts(), "") + `</div>`
}

func (v *HTMLView) resolve(ref string) string {
	if v.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return v.base.ResolveReference(u).String()
}
