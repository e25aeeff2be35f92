package obs

import (
	"sync/atomic"
	"time"

	"autotrader/internal/risk"
	"autotrader/internal/schema"

	"go.uber.org/zap/zapcore"
)

const maxEventType = int(schema.EventAmendOrder)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	eventCounts      [maxEventType + 1]uint64
	riskReasonCounts [risk.ReasonCount]uint64
	ignoredNotices   uint64
	failedHedges     uint64
	sendErrors       uint64
	queueDrops       uint64
	recordDrops      uint64
	queueClosed      uint64

	handleLatency LatencyStats
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

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts      map[schema.EventType]uint64
	RiskReasonCounts map[risk.Reason]uint64
	IgnoredNotices   uint64
	FailedHedges     uint64
	SendErrors       uint64
	QueueDrops       uint64
	RecordDrops      uint64
	QueueClosed      uint64
	HandleLatency    LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncEvent counts an inbound event or an emitted intent.
func (m *Metrics) IncEvent(t schema.EventType) {
	if m == nil {
		return
	}
	idx := int(t)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
}

// IncRiskReason increments the risk reason counter.
func (m *Metrics) IncRiskReason(reason risk.Reason) {
	if m == nil {
		return
	}
	idx := int(reason)
	if idx >= 0 && idx < len(m.riskReasonCounts) {
		atomic.AddUint64(&m.riskReasonCounts[idx], 1)
	}
}

// IncIgnoredNotice records a notification for an id the engine does not track.
func (m *Metrics) IncIgnoredNotice() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ignoredNotices, 1)
}

// IncFailedHedge records a hedge reported without execution.
func (m *Metrics) IncFailedHedge() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.failedHedges, 1)
}

// IncSendError records an intent the gateway refused.
func (m *Metrics) IncSendError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.sendErrors, 1)
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncRecordDrop records an event or intent the WAL could not take.
func (m *Metrics) IncRecordDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.recordDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// ObserveHandle measures how long one event took to process.
func (m *Metrics) ObserveHandle(d time.Duration) {
	if m == nil {
		return
	}
	m.handleLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.EventType]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.EventType(i)] = v
		}
	}
	riskCounts := make(map[risk.Reason]uint64)
	for i := range m.riskReasonCounts {
		if v := atomic.LoadUint64(&m.riskReasonCounts[i]); v > 0 {
			riskCounts[risk.Reason(i)] = v
		}
	}
	return Snapshot{
		EventCounts:      eventCounts,
		RiskReasonCounts: riskCounts,
		IgnoredNotices:   atomic.LoadUint64(&m.ignoredNotices),
		FailedHedges:     atomic.LoadUint64(&m.failedHedges),
		SendErrors:       atomic.LoadUint64(&m.sendErrors),
		QueueDrops:       atomic.LoadUint64(&m.queueDrops),
		RecordDrops:      atomic.LoadUint64(&m.recordDrops),
		QueueClosed:      atomic.LoadUint64(&m.queueClosed),
		HandleLatency:    m.handleLatency.Snapshot(),
	}
}

// MarshalLogObject lets a snapshot be logged with zap.Object.
func (s Snapshot) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for t, v := range s.EventCounts {
		enc.AddUint64("event."+t.String(), v)
	}
	for r, v := range s.RiskReasonCounts {
		enc.AddUint64("risk."+r.String(), v)
	}
	enc.AddUint64("ignoredNotices", s.IgnoredNotices)
	enc.AddUint64("failedHedges", s.FailedHedges)
	enc.AddUint64("sendErrors", s.SendErrors)
	enc.AddUint64("queueDrops", s.QueueDrops)
	enc.AddUint64("recordDrops", s.RecordDrops)
	enc.AddUint64("queueClosed", s.QueueClosed)
	enc.AddUint64("handle.count", s.HandleLatency.Count)
	enc.AddDuration("handle.min", s.HandleLatency.Min)
	enc.AddDuration("handle.max", s.HandleLatency.Max)
	enc.AddDuration("handle.avg", s.HandleLatency.Avg)
	return nil
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
