// Package obs collects lightweight process counters. No export pipeline:
// the snapshot is logged on shutdown and on demand.
package obs

import (
	"sync/atomic"
	"time"
)

// Metrics counts the strategy's hot-path activity. All fields are safe for
// concurrent use.
type Metrics struct {
	FramesAppended  atomic.Uint64
	AppendErrors    atomic.Uint64
	ReplayApplied   atomic.Uint64
	ReplayFiltered  atomic.Uint64
	ReplaySkipped   atomic.Uint64
	OrdersSubmitted atomic.Uint64
	OrdersRejected  atomic.Uint64
	QuotesSeen      atomic.Uint64
	PublishDrops    atomic.Uint64

	AppendLatency LatencyStats
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	FramesAppended  uint64
	AppendErrors    uint64
	ReplayApplied   uint64
	ReplayFiltered  uint64
	ReplaySkipped   uint64
	OrdersSubmitted uint64
	OrdersRejected  uint64
	QuotesSeen      uint64
	PublishDrops    uint64
	AppendLatency   LatencySnapshot
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		FramesAppended:  m.FramesAppended.Load(),
		AppendErrors:    m.AppendErrors.Load(),
		ReplayApplied:   m.ReplayApplied.Load(),
		ReplayFiltered:  m.ReplayFiltered.Load(),
		ReplaySkipped:   m.ReplaySkipped.Load(),
		OrdersSubmitted: m.OrdersSubmitted.Load(),
		OrdersRejected:  m.OrdersRejected.Load(),
		QuotesSeen:      m.QuotesSeen.Load(),
		PublishDrops:    m.PublishDrops.Load(),
		AppendLatency:   m.AppendLatency.Snapshot(),
	}
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
