// Package extract turns stored sequences into renderer-ready series.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/store"
)

// ErrNotImplemented is returned for index modes that are reserved but not
// supported yet
var ErrNotImplemented = errors.New("not implemented")

// SourceError names the source that could not be read
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// DefaultPalette is cycled through to color series
var DefaultPalette = []model.RGB{
	{R: 255, G: 0, B: 0},
	{R: 0, G: 0, B: 255},
	{R: 0, G: 160, B: 0},
	{R: 255, G: 140, B: 0},
	{R: 128, G: 0, B: 128},
	{R: 0, G: 160, B: 160},
}

// DefaultBackground is the plot background
var DefaultBackground = model.RGB{R: 255, G: 255, B: 255}

// Color returns the color of series i
func Color(palette []model.RGB, i int) model.RGB {
	return palette[i%len(palette)]
}

// Extractor reads sources and builds plot specs
type Extractor struct {
	reader     store.Reader
	palette    []model.RGB
	background model.RGB
}

// Option configures an Extractor
type Option func(*Extractor)

// WithPalette replaces the series palette. Empty palettes are ignored.
func WithPalette(palette []model.RGB) Option {
	return func(e *Extractor) {
		if len(palette) > 0 {
			e.palette = append([]model.RGB(nil), palette...)
		}
	}
}

// WithBackground replaces the background color
func WithBackground(bg model.RGB) Option {
	return func(e *Extractor) {
		e.background = bg
	}
}

// New creates an extractor reading from reader
func New(reader store.Reader, opts ...Option) *Extractor {
	e := &Extractor{
		reader:     reader,
		palette:    DefaultPalette,
		background: DefaultBackground,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads every source of spec and returns the resulting plot spec
func (e *Extractor) Extract(ctx context.Context, spec model.BindingSpec) (model.PlotSpec, error) {
	var series [][]model.Point

	switch spec.Index {
	case model.IndexNatural:
		for _, source := range spec.Sources {
			values, err := e.read(ctx, source)
			if err != nil {
				return model.PlotSpec{}, err
			}
			series = append(series, Natural(values))
		}

	case model.IndexZip:
		// The argument parser guarantees two sources
		xs, err := e.read(ctx, spec.Sources[0])
		if err != nil {
			return model.PlotSpec{}, err
		}
		ys, err := e.read(ctx, spec.Sources[1])
		if err != nil {
			return model.PlotSpec{}, err
		}
		series = append(series, Zip(xs, ys))

	case model.IndexXY:
		return model.PlotSpec{}, fmt.Errorf("index mode %s: %w", spec.Index, ErrNotImplemented)

	default:
		return model.PlotSpec{}, fmt.Errorf("index mode %s: %w", spec.Index, ErrNotImplemented)
	}

	colors := make([]model.RGB, len(series))
	for i := range series {
		colors[i] = Color(e.palette, i)
	}

	return model.PlotSpec{
		Series:     series,
		Colors:     colors,
		Background: e.background,
	}, nil
}

// Empty returns a plot spec with no series and the configured background
func (e *Extractor) Empty() model.PlotSpec {
	return model.PlotSpec{Background: e.background}
}

func (e *Extractor) read(ctx context.Context, source string) ([]model.Value, error) {
	values, err := e.reader.Range(ctx, source)
	if err != nil {
		return nil, &SourceError{Source: source, Err: err}
	}
	return values, nil
}

// Natural plots value i at x = i. Non-numeric values are skipped without
// renumbering the others.
func Natural(values []model.Value) []model.Point {
	points := make([]model.Point, 0, len(values))
	for i, v := range values {
		y, ok := v.Number()
		if !ok {
			continue
		}
		points = append(points, model.Point{X: float64(i), Y: y})
	}
	return points
}

// Zip pairs xs[i] with ys[i], dropping pairs where either side is not numeric
func Zip(xs, ys []model.Value) []model.Point {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	points := make([]model.Point, 0, n)
	for i := 0; i < n; i++ {
		x, okx := xs[i].Number()
		y, oky := ys[i].Number()
		if !okx || !oky {
			continue
		}
		points = append(points, model.Point{X: x, Y: y})
	}
	return points
}
