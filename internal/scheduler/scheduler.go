package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// entry is one queued scan's scheduling state. bucketWeightHint and
// agingRateHint are copied from the owning Scheduler at enqueue time so
// container/heap's Less (which only sees the entry) can still compute a
// correct score.
type entry struct {
	scanID           string
	submitterIP      string
	enqueuedAt       time.Time
	bucket           int // submission-count bucket at enqueue time; fixed, not recomputed
	bucketWeightHint float64
	agingRateHint    float64
	index            int // heap index, maintained by container/heap
}

// priorityQueue orders entries by descending score(); container/heap
// needs a Less that puts the highest-priority entry at index 0, so Less
// is inverted relative to a plain min-heap.
type priorityQueue []*entry

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].score(time.Now()) > pq[j].score(time.Now())
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index, pq[j].index = i, j
}
func (pq *priorityQueue) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*pq)
	*pq = append(*pq, e)
}
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*pq = old[:n-1]
	return e
}

// Scheduler is a fair-share priority queue: jobs bucket by the
// submitter's historical submission count (frequent submitters rank
// lower), and within a bucket, priority rises the longer a job has
// waited. Higher scores are claimed first. For bucket b and weight W,
// score = W/(b+1) - W/(b+2) + min(age*agingRate, W/(b+2)), so a job starts
// at its bucket's floor and climbs to W/(b+1) as it ages. A fully aged
// bucket-1 job ties a fresh bucket-0 job; from bucket 2 on the ranges
// overlap, and a long-waiting job can overtake a fresh job one bucket above.
type Scheduler struct {
	mu           sync.Mutex
	cond         *sync.Cond
	pq           priorityQueue
	index        map[string]*entry
	bucketWeight float64
	agingRate    float64
	logger       arbor.ILogger
}

// New builds a Scheduler from config.
func New(config common.SchedulerConfig, logger arbor.ILogger) interfaces.Scheduler {
	s := &Scheduler{
		index:        make(map[string]*entry),
		bucketWeight: config.BucketWeight,
		agingRate:    config.AgingRate,
		logger:       logger,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (e *entry) scoreWith(bucketWeight, agingRate float64, now time.Time) float64 {
	base := bucketWeight / float64(e.bucket+1)
	age := now.Sub(e.enqueuedAt).Seconds()
	// aging is capped at W/(b+2), the offset the job starts below its
	// base, so its score never rises above W/(b+1).
	maxAging := bucketWeight / float64(e.bucket+2)
	aging := age * agingRate
	if aging > maxAging {
		aging = maxAging
	}
	return base - (maxAging - aging)
}

// score computes the entry's current priority using the hints captured
// at enqueue time.
func (e *entry) score(now time.Time) float64 {
	return e.scoreWith(e.bucketWeightHint, e.agingRateHint, now)
}

func (s *Scheduler) Enqueue(ctx context.Context, scanID string, submitterIP string, submissionCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := submissionCount - 1 // submissionCount is 1-based; first-time submitter is bucket 0
	if bucket < 0 {
		bucket = 0
	}
	e := &entry{
		scanID:           scanID,
		submitterIP:      submitterIP,
		enqueuedAt:       time.Now(),
		bucket:           bucket,
		bucketWeightHint: s.bucketWeight,
		agingRateHint:    s.agingRate,
	}
	heap.Push(&s.pq, e)
	s.index[scanID] = e
	s.cond.Signal()
	return nil
}

func (s *Scheduler) Claim(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.pq) == 0 {
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				s.cond.Broadcast()
			case <-done:
			}
		}()
		s.cond.Wait()
		close(done)
		if ctx.Err() != nil {
			return "", false
		}
	}

	e := heap.Pop(&s.pq).(*entry)
	delete(s.index, e.scanID)
	return e.scanID, true
}

func (s *Scheduler) Position(scanID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.index[scanID]
	if !ok {
		return 0
	}
	now := time.Now()
	rank := 1
	for _, other := range s.pq {
		if other == e {
			continue
		}
		if other.score(now) > e.score(now) {
			rank++
		}
	}
	return rank
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pq)
}
