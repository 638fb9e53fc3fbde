package app

import "time"

// DefaultRateInterval is how often the rate monitor reports.
const DefaultRateInterval = time.Second

// RateMonitor counts samples per reporting interval. It is purely
// observational and never delays ingestion.
type RateMonitor struct {
	interval time.Duration
	count    int
	last     time.Time
	started  bool
}

// NewRateMonitor creates a monitor reporting every interval.
func NewRateMonitor(interval time.Duration) *RateMonitor {
	if interval <= 0 {
		interval = DefaultRateInterval
	}
	return &RateMonitor{interval: interval}
}

// Observe adds n samples to the current interval.
func (r *RateMonitor) Observe(n int) {
	r.count += n
}

// Tick reports the accumulated count and resets it once at least one
// interval has elapsed since the previous report. The first Tick only
// starts the clock. now should carry a monotonic reading (time.Now does).
func (r *RateMonitor) Tick(now time.Time) (int, bool) {
	if !r.started {
		r.last, r.started = now, true
		return 0, false
	}
	if now.Sub(r.last) < r.interval {
		return 0, false
	}
	n := r.count
	r.count = 0
	r.last = now
	return n, true
}
