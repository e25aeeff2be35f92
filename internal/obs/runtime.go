package obs

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RuntimeStats keeps two consecutive runtime.MemStats samples so growth
// between reports can be logged next to the absolute values.
type RuntimeStats struct {
	prev, curr     runtime.MemStats
	prevAt, currAt time.Time
}

// RunReportSchedule samples and logs every interval until ctx is done.
func (m *RuntimeStats) RunReportSchedule(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sample()
			logger.Info("runtime stats", zap.Object("runtime", m))
		}
	}
}

// Sample reads the current MemStats, keeping the previous one for deltas.
func (m *RuntimeStats) Sample() {
	m.prev, m.curr = m.curr, m.prev
	m.prevAt = m.currAt
	m.currAt = time.Now()

	runtime.ReadMemStats(&m.curr)

	if m.prevAt.IsZero() {
		m.prevAt = m.currAt
		m.prev = m.curr
	}
}

// Get returns the previous and current samples.
func (m *RuntimeStats) Get() (prev, curr runtime.MemStats) {
	return m.prev, m.curr
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m *RuntimeStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	dt := m.currAt.Sub(m.prevAt).Seconds()
	if dt <= 0 {
		dt = 1
	}
	grow := m.curr.TotalAlloc - m.prev.TotalAlloc

	// heap
	enc.AddUint64("allocGrowBytes", grow)
	enc.AddUint64("heapAllocBytes", m.curr.HeapAlloc)
	enc.AddUint64("heapInuseBytes", m.curr.HeapInuse)
	enc.AddUint64("heapObjects", m.curr.HeapObjects)
	enc.AddFloat64("allocRateBytesPerSec", float64(grow)/dt)

	// gc
	enc.AddUint32("gcTimes", m.curr.NumGC-m.prev.NumGC)
	enc.AddFloat64("gcStwMs", float64(m.curr.PauseTotalNs-m.prev.PauseTotalNs)/1_000_000.0)
	enc.AddUint64("nextGcBytes", m.curr.NextGC)
	enc.AddFloat64("gcCpuFraction", m.curr.GCCPUFraction)
	enc.AddUint64("mallocs", m.curr.Mallocs-m.prev.Mallocs)
	enc.AddUint64("frees", m.curr.Frees-m.prev.Frees)
	enc.AddInt64("liveObjects", int64(m.curr.Mallocs)-int64(m.curr.Frees))
	return nil
}
