package monitor

import (
	"testing"
	"time"

	"github.com/itohio/adcpipe/pkg/config"
	"github.com/itohio/adcpipe/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(window time.Duration, average int) *config.Config {
	cfg := config.Default()
	cfg.Monitor.Window = window
	cfg.Monitor.AverageSamples = average
	return cfg
}

func sampleAt(ts time.Time, channel uint8, value uint16) report.Report {
	return report.Report{Timestamp: ts, Kind: report.KindSample, Channel: channel, Value: value}
}

func warningAt(ts time.Time, dropped uint32) report.Report {
	return report.Report{Timestamp: ts, Kind: report.KindWarning, Dropped: dropped}
}

func TestMonitor_TracesPerChannel(t *testing.T) {
	m := New(testConfig(time.Minute, 0))
	now := time.Now()

	m.Add(sampleAt(now, 2, 300))
	m.Add(sampleAt(now.Add(time.Second), 1, 512))
	m.Add(sampleAt(now.Add(2*time.Second), 1, 514))

	s := m.Snapshot()
	require.Len(t, s.Traces, 2)
	assert.Equal(t, uint8(1), s.Traces[0].Channel, "traces are ordered by channel")
	assert.Equal(t, uint8(2), s.Traces[1].Channel)

	require.Len(t, s.Traces[0].Points, 2)
	last, ok := s.Traces[0].Last()
	require.True(t, ok)
	assert.Equal(t, uint16(514), last.Value)
	assert.InDelta(t, 513.0, s.Traces[0].Average, 1e-3)
	assert.InDelta(t, 514.0*5/1023, last.Volts, 1e-3)
	assert.Equal(t, uint64(3), s.Reported)
}

func TestMonitor_Warnings(t *testing.T) {
	m := New(testConfig(time.Minute, 0))
	now := time.Now()

	m.Add(warningAt(now, 5))
	m.Add(sampleAt(now, 1, 1))
	m.Add(warningAt(now.Add(time.Second), 2))

	s := m.Snapshot()
	assert.Equal(t, uint64(7), s.TotalDropped)
	require.Len(t, s.Warnings, 2)
	assert.Equal(t, uint32(5), s.Warnings[0].Dropped)
}

func TestMonitor_Window(t *testing.T) {
	m := New(testConfig(10*time.Second, 0))
	now := time.Now()

	m.Add(warningAt(now, 1))
	for i := 0; i < 20; i++ {
		m.Add(sampleAt(now.Add(time.Duration(i)*time.Second), 1, uint16(i)))
	}

	s := m.Snapshot()
	require.Len(t, s.Traces, 1)
	points := s.Traces[0].Points
	require.Len(t, points, 10)
	assert.Equal(t, uint16(10), points[0].Value)
	assert.Equal(t, uint16(19), points[9].Value)
	assert.Empty(t, s.Warnings, "old warnings leave the window")
	assert.Equal(t, uint64(1), s.TotalDropped, "totals are not windowed")
}

func TestMonitor_MovingAverage(t *testing.T) {
	m := New(testConfig(time.Minute, 2))
	now := time.Now()

	for i, v := range []uint16{100, 200, 300} {
		m.Add(sampleAt(now.Add(time.Duration(i)*time.Second), 1, v))
	}

	s := m.Snapshot()
	assert.InDelta(t, 250.0, s.Traces[0].Average, 1e-3)
}

func TestMonitor_SnapshotIsCopy(t *testing.T) {
	m := New(testConfig(time.Minute, 0))
	m.Add(sampleAt(time.Now(), 1, 1))

	s := m.Snapshot()
	s.Traces[0].Points[0].Value = 999

	assert.Equal(t, uint16(1), m.Snapshot().Traces[0].Points[0].Value)
}

func TestMonitor_Clear(t *testing.T) {
	m := New(testConfig(time.Minute, 0))
	m.Add(sampleAt(time.Now(), 1, 1))
	m.Add(warningAt(time.Now(), 3))

	m.Clear()
	s := m.Snapshot()
	assert.Empty(t, s.Traces)
	assert.Empty(t, s.Warnings)
	assert.Zero(t, s.Reported)
	assert.Zero(t, s.TotalDropped)
}

func TestMonitor_ZeroTimestampUsesNow(t *testing.T) {
	m := New(testConfig(time.Minute, 0))
	m.Add(report.Report{Kind: report.KindSample, Channel: 1, Value: 1})

	last, ok := m.Snapshot().Traces[0].Last()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), last.Timestamp, time.Second)
}

func TestAverage(t *testing.T) {
	points := []Point{{Value: 1}, {Value: 2}, {Value: 3}, {Value: 6}}

	tests := []struct {
		name string
		n    int
		want float32
	}{
		{"all", 0, 3},
		{"last two", 2, 4.5},
		{"more than available", 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Average(points, tt.n), 1e-6)
		})
	}

	assert.Zero(t, Average(nil, 3))
}

func TestDownsample(t *testing.T) {
	points := make([]Point, 100)
	for i := range points {
		points[i] = Point{Value: uint16(i)}
	}

	dst := make([]Point, 0, 20)
	result := Downsample(dst, points, 10)
	require.Len(t, result, 10)
	assert.Equal(t, cap(dst), cap(result), "dst is reused")
	assert.Equal(t, uint16(0), result[0].Value)
	assert.Equal(t, uint16(90), result[9].Value)

	small := Downsample(nil, points[:3], 10)
	assert.Equal(t, points[:3], small)
}
