// Package chart draws the intraday series as an SVG image and optionally rasterizes it
// to PNG through headless Chrome.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"hinosemi/internal/index"
)

// Theme colours.
const (
	Background = "#0e1726"
	AxisColor  = "#334155"
	ZeroColor  = "#475569"
	TickColor  = "#94a3b8"
	LabelColor = "#cbd5e1"
	TitleColor = "#e2e8f0"
	UpLine     = "#24d5db"
	UpFill     = "#1a9ba7"
	DownLine   = "#ff6b6b"
	DownFill   = "#a83b4a"
)

// ErrEmptySeries is returned when there is nothing to draw.
var ErrEmptySeries = errors.New("empty series to plot")

// Options configures the drawing.
type Options struct {
	Width    int
	Height   int
	Title    string
	YLabel   string
	Location *time.Location
}

// DefaultOptions returns a 1200x630 canvas.
func DefaultOptions() Options {
	return Options{Width: 1200, Height: 630, YLabel: "Change vs baseline (%)", Location: time.UTC}
}

// Title renders "<KEY> Intraday Snapshot (2006/01/02 MST)" for the session of last.
func Title(key string, last time.Time, loc *time.Location) string {
	if loc != nil {
		last = last.In(loc)
	}
	return fmt.Sprintf("%s Intraday Snapshot (%s %s)", key, last.Format("2006/01/02"), last.Format("MST"))
}

// Colors returns the line and fill colour for the sign of the last value.
func Colors(last float64) (line, fill string) {
	if last >= 0 {
		return UpLine, UpFill
	}
	return DownLine, DownFill
}

const (
	padLeft   = 80.0
	padRight  = 30.0
	padTop    = 60.0
	padBottom = 50.0
	yTicks    = 5
	xTicks    = 6
)

type frame struct {
	x0, x1, y0, y1 float64 // plot area in pixels
	t0, t1         int64   // unix seconds
	vmin, vmax     float64
}

func (f frame) x(t time.Time) float64 {
	if f.t1 == f.t0 {
		return (f.x0 + f.x1) / 2
	}
	return f.x0 + (f.x1-f.x0)*float64(t.Unix()-f.t0)/float64(f.t1-f.t0)
}

func (f frame) y(v float64) float64 {
	return f.y1 - (f.y1-f.y0)*(v-f.vmin)/(f.vmax-f.vmin)
}

// RenderSVG draws series. The value axis always includes zero.
func RenderSVG(series index.IndexSeries, opts Options) ([]byte, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	f := newFrame(series, float64(opts.Width), float64(opts.Height))
	last := series[len(series)-1]
	line, fill := Colors(last.Percent)

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`+"\n",
		opts.Width, opts.Height, opts.Width, opts.Height)
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", Background)

	for i := 0; i <= yTicks; i++ {
		v := f.vmin + (f.vmax-f.vmin)*float64(i)/yTicks
		y := f.y(v)
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-dasharray="4 4" stroke-opacity="0.35"/>`+"\n",
			f.x0, y, f.x1, y, AxisColor)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" fill="%s" font-size="12" text-anchor="end">%.2f</text>`+"\n",
			f.x0-8, y+4, TickColor, v)
	}
	for _, t := range timeTicks(series) {
		x := f.x(t)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" fill="%s" font-size="12" text-anchor="middle">%s</text>`+"\n",
			x, f.y1+20, TickColor, t.In(opts.Location).Format("15:04"))
	}

	fmt.Fprintf(&b, `<path d="%s" fill="%s" fill-opacity="0.25"/>`+"\n", areaPath(series, f), fill)
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-opacity="0.8"/>`+"\n",
		f.x0, f.y(0), f.x1, f.y(0), ZeroColor)
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2.2" stroke-linejoin="round"/>`+"\n", linePath(series, f), line)

	fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="%s"/>`+"\n",
		f.x0, f.y0, f.x1-f.x0, f.y1-f.y0, AxisColor)
	if opts.Title != "" {
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" fill="%s" font-size="20" text-anchor="middle">%s</text>`+"\n",
			float64(opts.Width)/2, padTop/2+6, TitleColor, html.EscapeString(opts.Title))
	}
	if opts.YLabel != "" {
		fmt.Fprintf(&b, `<text transform="translate(18 %.1f) rotate(-90)" fill="%s" font-size="13" text-anchor="middle">%s</text>`+"\n",
			(f.y0+f.y1)/2, LabelColor, html.EscapeString(opts.YLabel))
	}
	b.WriteString("</svg>\n")
	return b.Bytes(), nil
}

func newFrame(series index.IndexSeries, width, height float64) frame {
	f := frame{
		x0: padLeft, x1: width - padRight,
		y0: padTop, y1: height - padBottom,
		t0: series[0].Time.Unix(), t1: series[len(series)-1].Time.Unix(),
	}
	lo, hi := 0.0, 0.0
	for _, p := range series {
		lo = math.Min(lo, p.Percent)
		hi = math.Max(hi, p.Percent)
	}
	if hi-lo < 1e-9 {
		lo, hi = -1, 1
	}
	pad := (hi - lo) * 0.1
	f.vmin, f.vmax = lo-pad, hi+pad
	return f
}

func linePath(series index.IndexSeries, f frame) string {
	var sb strings.Builder
	for i, p := range series {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&sb, "%s%.1f,%.1f ", cmd, f.x(p.Time), f.y(p.Percent))
	}
	return strings.TrimSpace(sb.String())
}

func areaPath(series index.IndexSeries, f frame) string {
	zero := f.y(0)
	var sb strings.Builder
	fmt.Fprintf(&sb, "M%.1f,%.1f ", f.x(series[0].Time), zero)
	for _, p := range series {
		fmt.Fprintf(&sb, "L%.1f,%.1f ", f.x(p.Time), f.y(p.Percent))
	}
	fmt.Fprintf(&sb, "L%.1f,%.1f Z", f.x(series[len(series)-1].Time), zero)
	return sb.String()
}

// timeTicks returns evenly spaced label times across the series span.
func timeTicks(series index.IndexSeries) []time.Time {
	first, last := series[0].Time, series[len(series)-1].Time
	if !last.After(first) {
		return []time.Time{first}
	}
	step := last.Sub(first) / xTicks
	ticks := make([]time.Time, 0, xTicks+1)
	for i := 0; i <= xTicks; i++ {
		ticks = append(ticks, first.Add(time.Duration(i)*step))
	}
	return ticks
}
