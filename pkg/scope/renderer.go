package scope

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"
	"github.com/itohio/adcpipe/pkg/monitor"
	"github.com/itohio/adcpipe/pkg/report"
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	grid     *canvas.Rectangle
	objects  []fyne.CanvasObject
	lastSize fyne.Size
}

// plot maps data coordinates into the drawing area.
type plot struct {
	x, y, w, h float32
	yMin, yMax float32
	xMin, xMax time.Time
}

func (p plot) px(ts time.Time) float32 {
	span := float32(p.xMax.Sub(p.xMin).Seconds())
	if span <= 0 {
		return p.x
	}
	return p.x + float32(ts.Sub(p.xMin).Seconds())/span*p.w
}

func (p plot) py(v float32) float32 {
	span := p.yMax - p.yMin
	if span <= 0 {
		return p.y + p.h
	}
	return p.y + p.h - (v-p.yMin)/span*p.h
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh redraws everything from the current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	traces := r.scope.traces
	warnings := r.scope.warnings
	p := plot{
		yMin: r.scope.yMin,
		yMax: r.scope.yMax,
		xMin: r.scope.xMin,
		xMax: r.scope.xMax,
	}
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	const (
		marginLeft   = 60
		marginRight  = 20
		marginTop    = 20
		marginBottom = 40
	)
	p.x, p.y = marginLeft, marginTop
	p.w = size.Width - marginLeft - marginRight
	p.h = size.Height - marginTop - marginBottom

	r.drawGrid(p)
	r.drawWarnings(p, warnings)
	for i, tr := range traces {
		r.drawTrace(p, tr, traceColor(i))
		r.drawLegend(p, i, tr, traceColor(i))
	}
}

// drawGrid draws the oscilloscope-style grid with volt and second labels.
func (r *scopeRenderer) drawGrid(p plot) {
	gridColor := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor := color.RGBA{R: 150, G: 150, B: 150, A: 255}

	const numHLines = 8
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/numHLines
		r.line(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		value := p.yMax - float32(i)*(p.yMax-p.yMin)/numHLines
		r.text(formatVoltage(value), labelColor, 10, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))
	}

	const numVLines = 10
	span := p.xMax.Sub(p.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/numVLines
		r.line(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))

		offset := span * time.Duration(i) / numVLines
		r.text(formatTime(offset), labelColor, 10, fyne.TextAlignCenter, fyne.NewPos(x-20, p.y+p.h+5))
	}
}

// drawTrace draws one channel as connected segments.
func (r *scopeRenderer) drawTrace(p plot, tr monitor.Trace, c color.RGBA) {
	if len(tr.Points) < 2 {
		return
	}

	prev := fyne.NewPos(p.px(tr.Points[0].Timestamp), p.py(tr.Points[0].Volts))
	for _, pt := range tr.Points[1:] {
		cur := fyne.NewPos(p.px(pt.Timestamp), p.py(pt.Volts))
		r.line(c, 1.5, prev, cur)
		prev = cur
	}
}

// drawWarnings marks every drop warning with a vertical red line.
func (r *scopeRenderer) drawWarnings(p plot, warnings []report.Report) {
	red := color.RGBA{R: 220, G: 60, B: 60, A: 255}
	for _, w := range warnings {
		if w.Timestamp.Before(p.xMin) || w.Timestamp.After(p.xMax) {
			continue
		}
		x := p.px(w.Timestamp)
		r.line(red, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))
		r.text(fmt.Sprintf("-%d", w.Dropped), red, 10, fyne.TextAlignCenter, fyne.NewPos(x-10, p.y))
	}
}

// drawLegend prints the channel name, last value and average.
func (r *scopeRenderer) drawLegend(p plot, i int, tr monitor.Trace, c color.RGBA) {
	label := fmt.Sprintf("ADC%d", tr.Channel)
	if last, ok := tr.Last(); ok {
		label += fmt.Sprintf(" %d (%s) avg %.1f", last.Value, formatVoltage(last.Volts), tr.Average)
	}
	r.text(label, c, 11, fyne.TextAlignLeading, fyne.NewPos(p.x+10, p.y+10+float32(i)*14))
}

func (r *scopeRenderer) line(c color.Color, width float32, from, to fyne.Position) {
	l := canvas.NewLine(c)
	l.Position1 = from
	l.Position2 = to
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign, pos fyne.Position) {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.Alignment = align
	t.Move(pos)
	r.objects = append(r.objects, t)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatVoltage(v float32) string {
	if math32.Abs(v) < 0.001 {
		return "0.000V"
	}
	return fmt.Sprintf("%.3fV", v)
}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
