package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
)

func newTestScheduler() *Scheduler {
	return New(common.SchedulerConfig{BucketWeight: 1000, AgingRate: 1.0}, arbor.NewLogger()).(*Scheduler)
}

func TestSchedulerClaimFIFOWithinSameBucket(t *testing.T) {
	s := newTestScheduler()
	ctx := context.Background()

	if err := s.Enqueue(ctx, "scan-1", "1.1.1.1", 1); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.Enqueue(ctx, "scan-2", "2.2.2.2", 1); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	id, ok := s.Claim(ctx)
	if !ok {
		t.Fatal("expected a claim")
	}
	if id != "scan-1" {
		t.Fatalf("expected scan-1 to be claimed first (older, same bucket), got %s", id)
	}
}

func TestSchedulerPenalizesRepeatSubmitterBucket(t *testing.T) {
	s := newTestScheduler()
	ctx := context.Background()

	// 9.9.9.9's second-ever submission (persisted count 2) lands in bucket 1
	if err := s.Enqueue(ctx, "scan-a", "9.9.9.9", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(ctx, "scan-b", "9.9.9.9", 2); err != nil {
		t.Fatal(err)
	}
	// a different, first-time submitter arrives after, but in bucket 0
	if err := s.Enqueue(ctx, "scan-c", "1.2.3.4", 1); err != nil {
		t.Fatal(err)
	}

	id, ok := s.Claim(ctx)
	if !ok {
		t.Fatal("expected a claim")
	}
	if id != "scan-a" {
		t.Fatalf("expected scan-a (bucket 0, oldest) to be claimed first, got %s", id)
	}

	id, ok = s.Claim(ctx)
	if !ok {
		t.Fatal("expected a second claim")
	}
	if id != "scan-c" {
		t.Fatalf("expected scan-c (bucket 0, newer submitter) before scan-b (bucket 1), got %s", id)
	}
}

func TestSchedulerClaimBlocksUntilCancel(t *testing.T) {
	s := newTestScheduler()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, ok := s.Claim(ctx)
	if ok {
		t.Fatal("expected no claim from an empty queue before cancellation")
	}
}

func TestSchedulerBucketTracksPersistedSubmissionCountNotLiveQueueDepth(t *testing.T) {
	s := newTestScheduler()
	ctx := context.Background()

	// A heavy submitter whose earlier scans have already finished (so none
	// of them are queued right now) must still land in a high bucket on
	// their fifth submission, not bucket 0.
	if err := s.Enqueue(ctx, "scan-heavy-5th", "7.7.7.7", 5); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(ctx, "scan-first-timer", "8.8.8.8", 1); err != nil {
		t.Fatal(err)
	}

	id, ok := s.Claim(ctx)
	if !ok {
		t.Fatal("expected a claim")
	}
	if id != "scan-first-timer" {
		t.Fatalf("expected the first-time submitter's scan to be claimed first, got %s", id)
	}
}

func TestSchedulerPositionAndLen(t *testing.T) {
	s := newTestScheduler()
	ctx := context.Background()

	_ = s.Enqueue(ctx, "scan-x", "5.5.5.5", 1)
	_ = s.Enqueue(ctx, "scan-y", "6.6.6.6", 1)

	if s.Len() != 2 {
		t.Fatalf("expected queue length 2, got %d", s.Len())
	}
	if pos := s.Position("scan-x"); pos != 1 {
		t.Fatalf("expected scan-x at position 1, got %d", pos)
	}
}
