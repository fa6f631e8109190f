package progress

import "testing"

func TestEstimateReturnsUnknownWhenNoActiveScansOrHistory(t *testing.T) {
	e := NewWaitEstimator(50, 0)
	_, ok := e.Estimate(3, nil)
	if ok {
		t.Fatal("expected unknown estimate with no active scans and no historical average")
	}
}

func TestEstimatePositionZeroIsImmediate(t *testing.T) {
	e := NewWaitEstimator(50, 2)
	seconds, ok := e.Estimate(0, []float64{10, 20})
	if !ok || seconds != 0 {
		t.Fatalf("expected zero wait for position 0, got %f ok=%v", seconds, ok)
	}
}

func TestEstimateGrowsWithQueuePosition(t *testing.T) {
	e := NewWaitEstimator(50, 2)
	first, ok := e.Estimate(1, []float64{10, 20, 30})
	if !ok {
		t.Fatal("expected an estimate")
	}
	second, ok := e.Estimate(2, []float64{10, 20, 30})
	if !ok {
		t.Fatal("expected an estimate")
	}
	if second <= first {
		t.Fatalf("expected later queue position to have a longer wait: pos1=%f pos2=%f", first, second)
	}
}

func TestEstimateConsumesSmallestRemainingFirst(t *testing.T) {
	e := NewWaitEstimator(0, 1)
	// with defaultPagesPerSite=0, after the minimum is removed every
	// subsequent slot refills with 0, so the simulated wait for position 1
	// should equal exactly the smallest active remaining-pages value.
	seconds, ok := e.Estimate(1, []float64{40, 5, 100})
	if !ok {
		t.Fatal("expected an estimate")
	}
	if seconds != 5 {
		t.Fatalf("expected wait of 5 (the minimum), got %f", seconds)
	}
}
