package models

import "time"

// CrawlCheckpoint is the resumable frontier snapshot for one scan. Exactly
// one row exists per ScanID. Visited and Pending are disjoint sets;
// Pending preserves discovery order so resume behaves like a plain
// continuation of the same breadth-first walk.
type CrawlCheckpoint struct {
	ScanID            string    `json:"scanId"`
	VisitedURLs       []string  `json:"visitedUrls"`
	PendingURLs       []string  `json:"pendingUrls"`
	PagesVisited      int       `json:"pagesVisited"`
	PagesDiscovered   int       `json:"pagesDiscovered"`
	NonWebPImagesFound int      `json:"nonWebPImagesFound"`
	CurrentURL        string    `json:"currentUrl"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Visited is a lookup-friendly view over VisitedURLs, rebuilt on load; it
// is not itself persisted.
type Frontier struct {
	Visited map[string]bool
	Pending []string
}

// NewFrontier builds an in-memory frontier from a checkpoint, or an empty
// one if checkpoint is nil (fresh scan).
func NewFrontier(cp *CrawlCheckpoint) *Frontier {
	f := &Frontier{Visited: make(map[string]bool)}
	if cp == nil {
		return f
	}
	for _, u := range cp.VisitedURLs {
		f.Visited[u] = true
	}
	f.Pending = append(f.Pending, cp.PendingURLs...)
	return f
}

// Snapshot renders the frontier back into a persistable checkpoint body.
// Callers fill in ScanID/counters/timestamps/CurrentURL separately.
func (f *Frontier) Snapshot() (visited []string, pending []string) {
	visited = make([]string, 0, len(f.Visited))
	for u := range f.Visited {
		visited = append(visited, u)
	}
	pending = append(pending, f.Pending...)
	return visited, pending
}

// MarkVisited moves a URL from pending bookkeeping into the visited set.
func (f *Frontier) MarkVisited(url string) {
	f.Visited[url] = true
}

// Enqueue adds url to the pending list if it has not been visited and is
// not already pending.
func (f *Frontier) Enqueue(url string) {
	if f.Visited[url] {
		return
	}
	for _, p := range f.Pending {
		if p == url {
			return
		}
	}
	f.Pending = append(f.Pending, url)
}

// Dequeue pops the next pending URL, FIFO. Returns ok=false when empty.
func (f *Frontier) Dequeue() (url string, ok bool) {
	if len(f.Pending) == 0 {
		return "", false
	}
	url = f.Pending[0]
	f.Pending = f.Pending[1:]
	return url, true
}

// Discovered returns |visited ∪ pending|, the pages-discovered count.
func (f *Frontier) Discovered() int {
	return len(f.Visited) + len(f.Pending)
}
