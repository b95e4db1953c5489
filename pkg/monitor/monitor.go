// Package monitor keeps a time window of parsed reports per channel for
// display: recent values, a moving average and the drop warnings seen.
package monitor

import (
	"slices"
	"sync"
	"time"

	"github.com/itohio/adcpipe/pkg/config"
	"github.com/itohio/adcpipe/pkg/report"
)

var _ ReportMonitor = (*Monitor)(nil)

// Point is one reported sample.
type Point struct {
	Timestamp time.Time
	Value     uint16
	Volts     float32
}

// Trace is the windowed history of one channel.
type Trace struct {
	Channel uint8
	Points  []Point // oldest first
	Average float32 // moving average of the last AverageSamples values, or of the whole window
}

// Last returns the newest point, or false if the trace is empty.
func (t Trace) Last() (Point, bool) {
	if len(t.Points) == 0 {
		return Point{}, false
	}
	return t.Points[len(t.Points)-1], true
}

// Snapshot is a consistent copy of the monitor state.
type Snapshot struct {
	Traces       []Trace         // ordered by channel
	Warnings     []report.Report // drop warnings inside the window, oldest first
	Reported     uint64          // sample reports seen since start
	TotalDropped uint64          // sum of all reported drop counts since start
}

// ReportMonitor consumes reports and exposes windowed state.
type ReportMonitor interface {
	ProcessReports(input <-chan report.Report)
	Snapshot() Snapshot
	OnUpdate(func(Snapshot))
}

// Monitor implements ReportMonitor.
type Monitor struct {
	window   time.Duration
	average  int
	bits     int
	vref     float32
	mu       sync.RWMutex
	traces   map[uint8][]Point
	warnings []report.Report
	reported uint64
	dropped  uint64

	callbacks []func(Snapshot)
	cbMu      sync.RWMutex

	// Set when the input channel closes; suppresses further callbacks.
	shutdown bool
}

// New creates a monitor using the window and averaging settings of cfg and the
// converter resolution for volts conversion.
func New(cfg *config.Config) *Monitor {
	return &Monitor{
		window:  cfg.Monitor.Window,
		average: cfg.Monitor.AverageSamples,
		bits:    cfg.Sampler.ResolutionBits,
		vref:    cfg.Sampler.VRef,
		traces:  make(map[uint8][]Point),
	}
}

// ProcessReports consumes input until it is closed.
func (m *Monitor) ProcessReports(input <-chan report.Report) {
	for r := range input {
		m.Add(r)
	}

	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// Add records one report and notifies the callbacks.
func (m *Monitor) Add(r report.Report) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	m.mu.Lock()
	switch r.Kind {
	case report.KindSample:
		m.reported++
		m.traces[r.Channel] = append(m.traces[r.Channel], Point{
			Timestamp: r.Timestamp,
			Value:     r.Value,
			Volts:     report.Volts(r.Value, m.bits, m.vref),
		})
	case report.KindWarning:
		m.dropped += uint64(r.Dropped)
		m.warnings = append(m.warnings, r)
	}
	m.trim(r.Timestamp)
	notify := !m.shutdown
	m.mu.Unlock()

	if notify {
		m.notifyCallbacks()
	}
}

// trim drops everything older than the window relative to now.
func (m *Monitor) trim(now time.Time) {
	if m.window <= 0 {
		return
	}
	cutoff := now.Add(-m.window)

	for ch, points := range m.traces {
		i := 0
		for i < len(points) && !points[i].Timestamp.After(cutoff) {
			i++
		}
		if i > 0 {
			m.traces[ch] = points[i:]
		}
	}

	i := 0
	for i < len(m.warnings) && !m.warnings[i].Timestamp.After(cutoff) {
		i++
	}
	m.warnings = m.warnings[i:]
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	channels := make([]uint8, 0, len(m.traces))
	for ch := range m.traces {
		channels = append(channels, ch)
	}
	slices.Sort(channels)

	s := Snapshot{
		Traces:       make([]Trace, 0, len(channels)),
		Warnings:     slices.Clone(m.warnings),
		Reported:     m.reported,
		TotalDropped: m.dropped,
	}
	for _, ch := range channels {
		points := slices.Clone(m.traces[ch])
		s.Traces = append(s.Traces, Trace{
			Channel: ch,
			Points:  points,
			Average: Average(points, m.average),
		})
	}

	return s
}

// OnUpdate registers a callback invoked with a fresh snapshot after every
// report. The callback should return quickly.
func (m *Monitor) OnUpdate(callback func(Snapshot)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown allows callbacks again after the input channel was closed.
// Call it before feeding the monitor from a new connection.
func (m *Monitor) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// Clear drops all history and counters.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traces = make(map[uint8][]Point)
	m.warnings = nil
	m.reported = 0
	m.dropped = 0
}

func (m *Monitor) notifyCallbacks() {
	s := m.Snapshot()

	m.cbMu.RLock()
	callbacks := slices.Clone(m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(s)
		}
	}
}
