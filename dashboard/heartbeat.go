package main

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"github.com/itohio/adcpipe/pkg/task"
)

var _ task.Output = (*heartbeatLED)(nil)

var (
	ledOn  = color.RGBA{R: 60, G: 220, B: 60, A: 255}
	ledOff = color.RGBA{R: 40, G: 60, B: 40, A: 255}
)

// heartbeatLED mirrors the pipeline heartbeat in the toolbar.
type heartbeatLED struct {
	circle *canvas.Circle
}

func newHeartbeatLED() *heartbeatLED {
	c := canvas.NewCircle(ledOff)
	return &heartbeatLED{circle: c}
}

// Object returns the canvas object to place in a layout.
func (l *heartbeatLED) Object() fyne.CanvasObject {
	return container.NewGridWrap(fyne.NewSize(16, 16), l.circle)
}

// Set is called from the heartbeat task; the UI update is scheduled on the
// main thread.
func (l *heartbeatLED) Set(on bool) {
	fill := ledOff
	if on {
		fill = ledOn
	}
	fyne.Do(func() {
		l.circle.FillColor = fill
		l.circle.Refresh()
	})
}
