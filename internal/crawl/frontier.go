package crawl

import (
	"sync"
)

// Frontier is the in-scan queue of URLs pending fetch, deduplicated by
// normalized form. Each scan owns its own frontier; there is no
// cross-scan shared state.
type Frontier struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	queue []string
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{seen: make(map[string]struct{})}
}

// Add enqueues a URL if its normalized form has not been seen this scan.
// Returns true if the URL was enqueued.
func (f *Frontier) Add(rawURL string) bool {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, dup := f.seen[normalized]; dup {
		return false
	}

	f.seen[normalized] = struct{}{}
	f.queue = append(f.queue, normalized)
	return true
}

// Next dequeues the next URL, returning false when the frontier is empty.
func (f *Frontier) Next() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return "", false
	}

	next := f.queue[0]
	f.queue = f.queue[1:]
	return next, true
}

// Len returns the number of queued URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// SeenCount returns the number of distinct URLs observed this scan.
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
