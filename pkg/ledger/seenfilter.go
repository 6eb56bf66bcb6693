package ledger

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// SeenFilter is a bloom-filter prefilter over transaction signatures the
// pipeline has already processed. A negative answer is definitive (the
// signature was never added); a positive answer may be a false positive,
// so callers confirm positives against the store before skipping work.
type SeenFilter struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// NewSeenFilter sizes the filter for the expected number of signatures at a
// 1% false-positive rate.
func NewSeenFilter(expected uint) *SeenFilter {
	if expected == 0 {
		expected = 10_000
	}
	return &SeenFilter{filter: bloom.NewWithEstimates(expected, 0.01)}
}

// Add records a signature as processed.
func (f *SeenFilter) Add(signature string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(signature)
}

// MaybeSeen reports whether the signature might have been processed. False
// means definitely new.
func (f *SeenFilter) MaybeSeen(signature string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.TestString(signature)
}
