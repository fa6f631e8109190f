package progress

import "sort"

// WaitEstimator simulates queue progression to estimate how long a
// newly-queued scan at position p will wait, without tracking real
// per-scan completion times (spec §4.9's "design invariant").
type WaitEstimator struct {
	defaultPagesPerSite float64
	avgSecondsPerPage   float64
}

// NewWaitEstimator builds an estimator. defaultPagesPerSite seeds the
// simulated queue when a real remaining-pages count isn't known yet;
// avgSecondsPerPage converts simulated pages into wall-clock seconds.
func NewWaitEstimator(defaultPagesPerSite, avgSecondsPerPage float64) *WaitEstimator {
	return &WaitEstimator{
		defaultPagesPerSite: defaultPagesPerSite,
		avgSecondsPerPage:   avgSecondsPerPage,
	}
}

// Estimate returns the predicted wait, in seconds, for a scan queued at
// position (1-based) given the remaining page counts of scans currently
// in progress. ok is false when there is nothing to simulate from (no
// active scans and the caller has no historical average to fall back on).
func (e *WaitEstimator) Estimate(position int, remainingPages []float64) (seconds float64, ok bool) {
	if position <= 0 {
		return 0, true
	}
	if len(remainingPages) == 0 && e.avgSecondsPerPage <= 0 {
		return 0, false
	}

	multiset := append([]float64(nil), remainingPages...)
	sort.Float64s(multiset)

	var totalMinutes float64
	for i := 0; i < position; i++ {
		if len(multiset) == 0 {
			multiset = append(multiset, e.defaultPagesPerSite)
		}
		m := multiset[0]
		totalMinutes += m

		rest := multiset[1:]
		for j := range rest {
			rest[j] -= m
		}
		rest = append(rest, e.defaultPagesPerSite)
		sort.Float64s(rest)
		multiset = rest
	}

	return totalMinutes * e.avgSecondsPerPage, true
}
