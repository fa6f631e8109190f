package admission

import (
	"hash/fnv"
	"sync"
	"time"
)

const numShards = 64
const segments = 4

// segmentedWindow is one key's 4-segment sliding window: the window is
// split into `segments` equal buckets, each one `segments`-th of the
// window wide; advancing time rotates out the oldest bucket rather than
// decaying every request's weight individually.
type segmentedWindow struct {
	counts     [segments]int
	bucketTime [segments]time.Time
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*segmentedWindow
}

// RateLimiter is a sharded, segmented sliding-window limiter: each key
// (here, submitter IP) is allowed at most `limit` requests across the
// trailing `window` duration, counted across four rotating segments
// rather than a single bucket, so the edge of the window doesn't reset
// to zero all at once.
type RateLimiter struct {
	shards []*shard
	limit  int
	window time.Duration
}

// NewRateLimiter builds a limiter allowing limit requests per window, per
// key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{shards: make([]*shard, numShards), limit: limit, window: window}
	for i := range rl.shards {
		rl.shards[i] = &shard{windows: make(map[string]*segmentedWindow)}
	}
	return rl
}

func (rl *RateLimiter) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return rl.shards[h.Sum32()%numShards]
}

// Allow reports whether key may proceed now. Only allowed requests are
// counted in the window; a denied attempt is not recorded.
func (rl *RateLimiter) Allow(key string) bool {
	s := rl.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		w = &segmentedWindow{}
		s.windows[key] = w
	}

	now := time.Now()
	segmentWidth := rl.window / segments
	rl.rotate(w, now, segmentWidth)

	total := 0
	for _, c := range w.counts {
		total += c
	}
	if total >= rl.limit {
		return false
	}

	w.counts[segments-1]++
	if w.bucketTime[segments-1].IsZero() {
		w.bucketTime[segments-1] = now
	}
	return true
}

// rotate drops segments whose bucket has aged out of the window,
// shifting newer segments down so index segments-1 is always "now".
func (rl *RateLimiter) rotate(w *segmentedWindow, now time.Time, segmentWidth time.Duration) {
	if w.bucketTime[segments-1].IsZero() {
		return
	}
	elapsed := now.Sub(w.bucketTime[segments-1])
	shiftBy := int(elapsed / segmentWidth)
	if shiftBy <= 0 {
		return
	}
	if shiftBy >= segments {
		*w = segmentedWindow{}
		return
	}
	for i := 0; i < segments-shiftBy; i++ {
		w.counts[i] = w.counts[i+shiftBy]
		w.bucketTime[i] = w.bucketTime[i+shiftBy]
	}
	for i := segments - shiftBy; i < segments; i++ {
		w.counts[i] = 0
		w.bucketTime[i] = time.Time{}
	}
}
