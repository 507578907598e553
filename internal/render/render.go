// Package render draws plot specs as line charts.
//
// Rendering goes through go-chart's raster backend with its embedded font,
// so identical specs and sizes always produce identical pixels.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/sliink/liveplot/internal/model"
)

const (
	// Margin is the padding kept around the chart canvas
	Margin = 25
	// minChartSize is the smallest side that still fits axes and labels
	minChartSize = 4 * Margin
)

// ErrInvalidSize is returned for non-positive surface dimensions
var ErrInvalidSize = errors.New("invalid surface size")

var gridColor = drawing.Color{R: 224, G: 224, B: 224, A: 255}

// Range is a closed interval on one axis
type Range struct {
	Min float64
	Max float64
}

// Degenerate reports whether the range has no extent
func (r Range) Degenerate() bool {
	return r.Max <= r.Min
}

// padded widens a degenerate range around its value so axes can be drawn
func (r Range) padded() Range {
	if !r.Degenerate() {
		return r
	}
	half := math.Max(math.Abs(r.Min)*0.05, 0.5)
	return Range{Min: r.Min - half, Max: r.Min + half}
}

// Bounds returns the bounding rectangle of every point of every series.
// When there are no points both ranges are 0..0.
func Bounds(spec model.PlotSpec) (x, y Range) {
	first := true
	for _, series := range spec.Series {
		for _, p := range series {
			if first {
				x = Range{Min: p.X, Max: p.X}
				y = Range{Min: p.Y, Max: p.Y}
				first = false
				continue
			}
			x.Min = math.Min(x.Min, p.X)
			x.Max = math.Max(x.Max, p.X)
			y.Min = math.Min(y.Min, p.Y)
			y.Max = math.Max(y.Max, p.Y)
		}
	}
	return x, y
}

// Option configures a render call
type Option func(*options)

type options struct {
	title  string
	logger *slog.Logger
}

// WithTitle draws a caption above the chart
func WithTitle(title string) Option {
	return func(o *options) {
		o.title = title
	}
}

// WithLogger sets the logger used to report chart fallbacks
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Render draws spec onto a width x height frame: background, axis mesh and
// labels within Margin, then every series as a line in series order.
// Frames too small for axes, and charts the backend refuses to draw, come
// back as a plain background.
func Render(spec model.PlotSpec, width, height int, opts ...Option) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if len(spec.Series) != len(spec.Colors) {
		return nil, fmt.Errorf("plot spec has %d series but %d colors", len(spec.Series), len(spec.Colors))
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if width < minChartSize || height < minChartSize {
		return blank(width, height, spec.Background), nil
	}

	img, err := renderChart(spec, width, height, o.title)
	if err != nil {
		o.logger.Warn("chart render failed, drawing background only",
			"error", err, "width", width, "height", height)
		return blank(width, height, spec.Background), nil
	}
	return img, nil
}

func renderChart(spec model.PlotSpec, width, height int, title string) (img *image.RGBA, err error) {
	// go-chart panics on some degenerate geometry instead of returning errors
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart panic: %v", r)
		}
	}()

	xr, yr := Bounds(spec)
	xr, yr = xr.padded(), yr.padded()

	series := make([]chart.Series, 0, len(spec.Series)+1)
	for i, points := range spec.Series {
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for j, p := range points {
			xs[j], ys[j] = p.X, p.Y
		}
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("series %d", i),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: toColor(spec.Colors[i]),
				StrokeWidth: 1.5,
			},
		})
	}
	if len(series) == 0 {
		// The backend needs at least one visible series to draw the axes
		series = append(series, chart.ContinuousSeries{Name: "empty"})
	}

	bg := toColor(spec.Background)
	graph := chart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: bg,
			Padding:   chart.Box{Top: Margin, Left: Margin, Right: Margin, Bottom: Margin},
		},
		Canvas: chart.Style{FillColor: bg},
		XAxis: chart.XAxis{
			Range:          &chart.ContinuousRange{Min: xr.Min, Max: xr.Max},
			GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1},
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: yr.Min, Max: yr.Max},
			GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1},
		},
		Series: series,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}

	img = image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	return img, nil
}

func blank(width, height int, bg model.RGB) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: bg.R, G: bg.G, B: bg.B, A: 255}), image.Point{}, draw.Src)
	return img
}

func toColor(c model.RGB) drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: 255}
}
