package livefeed

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is a post held by the feed.
type Entry struct {
	ID   string // de-duplication identity, see Post.Identity
	Seq  uint64 // insertion order, starting at 1
	Post Post
}

// FeedStore is the in-memory, de-duplicated list of posts. Both the
// optimistic local path and the channel echo write into it.
type FeedStore struct {
	mu       sync.Mutex
	capacity int
	seen     *lru.Cache[string, uint64]
	entries  []Entry // oldest first
	seq      uint64
}

// NewFeedStore returns a store holding at most capacity entries. Older
// entries and their identities are forgotten beyond that.
func NewFeedStore(capacity int) (*FeedStore, error) {
	if capacity <= 0 {
		return nil, NewError(ErrorInvalidConfig, fmt.Sprintf("feed capacity must be positive, got %d", capacity))
	}
	seen, err := lru.New[string, uint64](capacity)
	if err != nil {
		return nil, WrapError(ErrorInvalidConfig, "failed to create identity cache", err)
	}
	return &FeedStore{capacity: capacity, seen: seen}, nil
}

// Record inserts post at the head of the feed unless a post with the same
// identity is already present. isNew reports whether an insertion happened.
func (s *FeedStore) Record(post Post) (entry Entry, isNew bool) {
	id := post.Identity()

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq, ok := s.seen.Peek(id); ok {
		feedDuplicates.Inc()
		return Entry{ID: id, Seq: seq, Post: post}, false
	}

	s.seq++
	entry = Entry{ID: id, Seq: s.seq, Post: post}
	s.seen.Add(id, s.seq)
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
	feedEntries.Set(float64(len(s.entries)))
	return entry, true
}

// Contains reports whether a post with the same identity is in the feed.
func (s *FeedStore) Contains(post Post) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen.Contains(post.Identity())
}

// Entries returns a newest-first snapshot.
func (s *FeedStore) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[len(s.entries)-1-i] = e
	}
	return out
}

func (s *FeedStore) Capacity() int { return s.capacity }

func (s *FeedStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
