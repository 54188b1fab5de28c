package livefeed

import "sync"

// View receives entries to display, newest last. Implementations place
// each one above everything shown before it.
type View interface {
	Prepend(Entry)
}

// FeedRenderer shows posts that the FeedStore accepts as new. Record and
// Prepend happen under one lock so the visible order is insertion order,
// independent of createdAt.
type FeedRenderer struct {
	mu    sync.Mutex
	store *FeedStore
	view  View
}

// Views that keep their own copy of the feed implement boundedView to be
// held to the store's capacity, and loggingView to report render failures.
type (
	boundedView interface{ SetCapacity(n int) }
	loggingView interface{ SetLogger(l Logger) }
)

func NewFeedRenderer(store *FeedStore, view View) *FeedRenderer {
	if bv, ok := view.(boundedView); ok {
		bv.SetCapacity(store.Capacity())
	}
	return &FeedRenderer{store: store, view: view}
}

// SetLogger passes l to the view if it logs.
func (r *FeedRenderer) SetLogger(l Logger) {
	if lv, ok := r.view.(loggingView); ok && l != nil {
		lv.SetLogger(l)
	}
}

// Show records post and renders it if it was not already in the feed.
func (r *FeedRenderer) Show(post Post) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, isNew := r.store.Record(post)
	if !isNew {
		return false
	}
	r.view.Prepend(entry)
	return true
}

func (r *FeedRenderer) Store() *FeedStore { return r.store }
