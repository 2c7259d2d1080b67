package crawler

import (
	"net/url"
	"sync"
)

// Visited tracks URLs already crawled in a run.
type Visited struct {
	seen map[string]bool
	mu   sync.Mutex
}

// NewVisited creates an empty set.
func NewVisited() *Visited {
	return &Visited{seen: make(map[string]bool)}
}

// Add marks rawURL as visited and reports whether it was new.
// URLs differing only by fragment are the same page.
func (v *Visited) Add(rawURL string) bool {
	key := visitKey(rawURL)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.seen[key] {
		return false
	}
	v.seen[key] = true
	return true
}

// Len returns the number of visited URLs.
func (v *Visited) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

func visitKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
