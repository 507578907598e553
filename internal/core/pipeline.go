package core

import (
	"context"
	"image"
	"log/slog"

	"github.com/sliink/liveplot/internal/extract"
	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/render"
	"github.com/sliink/liveplot/internal/store"
)

// Plotter turns a binding spec into pixels: extract reads the store and
// builds a plot spec, render draws it. Both the one-shot draw command and
// every render target go through the same Plotter.
type Plotter struct {
	extractor   *extract.Extractor
	extractOpts []extract.Option
	title       string
	logger      *slog.Logger
	BaseComponent
}

// PlotterOption customizes a Plotter
type PlotterOption func(*Plotter)

// WithExtractOptions forwards palette and background options to the extractor
func WithExtractOptions(opts ...extract.Option) PlotterOption {
	return func(p *Plotter) {
		p.extractOpts = append(p.extractOpts, opts...)
	}
}

// WithChartTitle draws a caption above every chart
func WithChartTitle(title string) PlotterOption {
	return func(p *Plotter) {
		p.title = title
	}
}

// NewPlotter creates a plotter reading from reader
func NewPlotter(reader store.Reader, opts ...PlotterOption) *Plotter {
	p := &Plotter{
		logger:        slog.Default().With("component", "plotter"),
		BaseComponent: NewBaseComponent("plotter", "Plotter"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.extractor = extract.New(reader, p.extractOpts...)
	return p
}

// Initialize prepares the plotter for operation
func (p *Plotter) Initialize() bool {
	p.SetStatus(model.StatusInitialized)
	return true
}

// Start begins plotter operation
func (p *Plotter) Start() bool {
	p.SetStatus(model.StatusRunning)
	return true
}

// Stop halts plotter operation
func (p *Plotter) Stop() bool {
	p.SetStatus(model.StatusStopped)
	return true
}

// Extract reads the sources named by spec and builds a plot spec
func (p *Plotter) Extract(ctx context.Context, spec model.BindingSpec) (model.PlotSpec, error) {
	return p.extractor.Extract(ctx, spec)
}

// Empty returns the plot drawn before any data has been extracted
func (p *Plotter) Empty() model.PlotSpec {
	return p.extractor.Empty()
}

// Frame renders plot at the size requested by spec
func (p *Plotter) Frame(plot model.PlotSpec, spec model.BindingSpec) (*image.RGBA, error) {
	opts := []render.Option{render.WithLogger(p.logger)}
	if p.title != "" {
		opts = append(opts, render.WithTitle(p.title))
	}
	return render.Render(plot, spec.Width, spec.Height, opts...)
}

// Plot extracts and renders in one step
func (p *Plotter) Plot(ctx context.Context, spec model.BindingSpec) (*image.RGBA, error) {
	plot, err := p.Extract(ctx, spec)
	if err != nil {
		return nil, err
	}
	return p.Frame(plot, spec)
}

// Draw extracts, renders and encodes the frame as a raw bitmap
func (p *Plotter) Draw(ctx context.Context, spec model.BindingSpec) ([]byte, error) {
	img, err := p.Plot(ctx, spec)
	if err != nil {
		return nil, err
	}
	return render.EncodeBitmap(img), nil
}
