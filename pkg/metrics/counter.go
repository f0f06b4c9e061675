package metrics

import "sync/atomic"

// Counter is a monotonically increasing event count.
type Counter struct {
	name  string
	value int64
}

func newCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc adds one to the counter.
func (c *Counter) Inc() {
	if !enabled || c == nil {
		return
	}
	atomic.AddInt64(&c.value, 1)
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Name returns the counter name.
func (c *Counter) Name() string {
	return c.name
}

// Reset sets the counter back to zero.
func (c *Counter) Reset() {
	atomic.StoreInt64(&c.value, 0)
}

// Global counters.
var (
	FetchesIssued    = newCounter("fetches_issued")
	FetchesCancelled = newCounter("fetches_cancelled")
	StaleDropped     = newCounter("stale_responses_dropped")
	MissingSelected  = newCounter("missing_threshold_selected")
)

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{FetchesIssued, FetchesCancelled, StaleDropped, MissingSelected}
}

// CounterSnapshot maps counter names to values.
func CounterSnapshot() map[string]int64 {
	out := make(map[string]int64, len(AllCounters()))
	for _, c := range AllCounters() {
		out[c.name] = c.Value()
	}
	return out
}
