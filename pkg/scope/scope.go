package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/chewxy/math32"
	"github.com/itohio/adcpipe/pkg/config"
	"github.com/itohio/adcpipe/pkg/monitor"
	"github.com/itohio/adcpipe/pkg/report"
)

// traceColors are assigned to channels in ascending channel order.
var traceColors = []color.RGBA{
	{R: 255, G: 165, B: 0, A: 255},   // orange
	{R: 100, G: 200, B: 255, A: 255}, // light blue
	{R: 120, G: 220, B: 120, A: 255}, // green
	{R: 220, G: 120, B: 220, A: 255}, // violet
}

func traceColor(i int) color.RGBA {
	return traceColors[i%len(traceColors)]
}

// ScopeWidget is a custom Fyne widget that plots the reported values of every
// channel against time and marks drop warnings.
type ScopeWidget struct {
	widget.BaseWidget

	window time.Duration
	vref   float32

	// Data (protected by mu)
	mu       sync.RWMutex
	traces   []monitor.Trace
	warnings []report.Report

	// Scale
	yMin, yMax float32
	xMin, xMax time.Time

	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		window:           cfg.Monitor.Window,
		vref:             cfg.Sampler.VRef,
		maxDisplayPoints: 1000,
	}
	s.yMin, s.yMax, s.xMin, s.xMax = bounds(nil, s.window, s.vref)
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData replaces the plotted data. Call it from the UI goroutine, e.g.
// inside fyne.Do.
func (s *ScopeWidget) UpdateData(snap monitor.Snapshot) {
	s.mu.Lock()

	if cap(s.traces) < len(snap.Traces) {
		s.traces = make([]monitor.Trace, len(snap.Traces))
	}
	s.traces = s.traces[:len(snap.Traces)]
	for i, tr := range snap.Traces {
		s.traces[i].Channel = tr.Channel
		s.traces[i].Average = tr.Average
		s.traces[i].Points = monitor.Downsample(s.traces[i].Points, tr.Points, s.maxDisplayPoints)
	}
	s.warnings = snap.Warnings
	s.yMin, s.yMax, s.xMin, s.xMax = bounds(s.traces, s.window, s.vref)

	s.mu.Unlock()

	s.Refresh()
}

// bounds computes the plot range. The Y axis always includes 0..vref; the X
// axis spans at least window.
func bounds(traces []monitor.Trace, window time.Duration, vref float32) (yMin, yMax float32, xMin, xMax time.Time) {
	yMin, yMax = 0, vref
	if yMax <= 0 {
		yMax = 1
	}

	first, last := time.Time{}, time.Time{}
	for _, tr := range traces {
		for _, p := range tr.Points {
			yMin = math32.Min(yMin, p.Volts)
			yMax = math32.Max(yMax, p.Volts)
			if first.IsZero() || p.Timestamp.Before(first) {
				first = p.Timestamp
			}
			if p.Timestamp.After(last) {
				last = p.Timestamp
			}
		}
	}

	if first.IsZero() {
		now := time.Now()
		return yMin, yMax, now, now.Add(window)
	}

	xMin, xMax = first, last
	if xMax.Sub(xMin) < window {
		xMin = xMax.Add(-window)
	}
	return yMin, yMax, xMin, xMax
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
