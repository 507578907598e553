package core

import (
	"context"
	"time"

	"github.com/sliink/liveplot/internal/model"
)

// SurfaceFactory creates the drawing destination for a new render target
type SurfaceFactory interface {
	Create(targetID string, spec model.BindingSpec) (model.Surface, error)
}

// RenderTarget is one live plot. It is created, redrawn and closed only on
// the dispatcher goroutine; other goroutines see it through TargetInfo.
type RenderTarget struct {
	id         string
	spec       model.BindingSpec
	surface    model.Surface
	mailbox    *Mailbox[Change]
	buffer     model.PlotSpec
	redraws    uint64
	skipped    uint64
	lastErr    error
	lastRedraw time.Time
}

func newRenderTarget(id string, spec model.BindingSpec, surface model.Surface, mailbox *Mailbox[Change], empty model.PlotSpec) *RenderTarget {
	return &RenderTarget{
		id:      id,
		spec:    spec.Clone(),
		surface: surface,
		mailbox: mailbox,
		buffer:  empty,
	}
}

// ID returns the target id
func (t *RenderTarget) ID() string {
	return t.id
}

// refresh re-extracts the data and redraws. On extraction failure the
// previous buffer and frame stay in place.
func (t *RenderTarget) refresh(ctx context.Context, plotter *Plotter) error {
	plot, err := plotter.Extract(ctx, t.spec)
	if err != nil {
		t.skipped++
		t.lastErr = err
		return err
	}
	t.buffer = plot
	return t.paint(plotter)
}

// paint renders the current buffer onto the surface
func (t *RenderTarget) paint(plotter *Plotter) error {
	frame, err := plotter.Frame(t.buffer, t.spec)
	if err == nil {
		err = t.surface.Draw(frame)
	}
	if err != nil {
		t.skipped++
		t.lastErr = err
		return err
	}
	t.redraws++
	t.lastErr = nil
	t.lastRedraw = time.Now()
	return nil
}

func (t *RenderTarget) info() model.TargetInfo {
	info := model.TargetInfo{
		ID:         t.id,
		Spec:       t.spec.Clone(),
		Surface:    t.surface.Name(),
		Visible:    t.surface.Visible(),
		Redraws:    t.redraws,
		Skipped:    t.skipped,
		Points:     t.buffer.Size(),
		LastRedraw: t.lastRedraw,
		Mailbox:    t.mailbox.Status(),
	}
	if t.lastErr != nil {
		info.LastError = t.lastErr.Error()
	}
	return info
}
