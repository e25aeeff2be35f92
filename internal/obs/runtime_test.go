package obs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRuntimeStatsSample(t *testing.T) {
	var m RuntimeStats
	m.Sample()
	prev, curr := m.Get()
	assert.Equal(t, prev.NumGC, curr.NumGC)
	assert.NotZero(t, curr.HeapAlloc)

	sink := make([][]byte, 0, 64)
	for i := 0; i < 64; i++ {
		sink = append(sink, make([]byte, 1024))
	}
	m.Sample()
	prev, curr = m.Get()
	assert.GreaterOrEqual(t, curr.TotalAlloc, prev.TotalAlloc+64*1024)
	assert.Len(t, sink, 64)

	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, m.MarshalLogObject(enc))
	assert.Contains(t, enc.Fields, "heapAllocBytes")
	assert.Contains(t, enc.Fields, "gcTimes")
	assert.GreaterOrEqual(t, enc.Fields["allocGrowBytes"], uint64(64*1024))
}

func TestRuntimeStatsReportSchedule(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	var m RuntimeStats
	go func() {
		m.RunReportSchedule(ctx, 5*time.Millisecond, zap.New(core))
		close(done)
	}()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("runtime stats").Len() >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("report schedule did not stop")
	}
}
