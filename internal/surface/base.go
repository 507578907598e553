package surface

import (
	"errors"
	"image"
)

// ErrSurfaceClosed is returned by Draw and Present after Close
var ErrSurfaceClosed = errors.New("surface closed")

// BaseSurface provides the hidden-until-presented behaviour shared by all
// surfaces. Frames drawn while hidden are held back; Present delivers the
// latest one. Surfaces are owned by one goroutine and are not locked.
type BaseSurface struct {
	name      string
	visible   bool
	closed    bool
	pending   *image.RGBA
	delivered uint64
	deliver   func(frame *image.RGBA) error
}

// NewBaseSurface creates a hidden surface that hands frames to deliver once visible
func NewBaseSurface(name string, deliver func(frame *image.RGBA) error) BaseSurface {
	return BaseSurface{
		name:    name,
		deliver: deliver,
	}
}

// Name returns the surface name
func (s *BaseSurface) Name() string {
	return s.name
}

// Visible reports whether Present has been called
func (s *BaseSurface) Visible() bool {
	return s.visible
}

// Delivered returns how many frames reached the destination
func (s *BaseSurface) Delivered() uint64 {
	return s.delivered
}

// Draw delivers frame, or holds it back while hidden
func (s *BaseSurface) Draw(frame *image.RGBA) error {
	if s.closed {
		return ErrSurfaceClosed
	}
	if !s.visible {
		s.pending = frame
		return nil
	}
	return s.push(frame)
}

// Present makes the surface visible and delivers the held-back frame
func (s *BaseSurface) Present() error {
	if s.closed {
		return ErrSurfaceClosed
	}
	if s.visible {
		return nil
	}
	s.visible = true

	frame := s.pending
	s.pending = nil
	if frame == nil {
		return nil
	}
	return s.push(frame)
}

// Close discards any held-back frame
func (s *BaseSurface) Close() error {
	s.closed = true
	s.pending = nil
	return nil
}

func (s *BaseSurface) push(frame *image.RGBA) error {
	if err := s.deliver(frame); err != nil {
		return err
	}
	s.delivered++
	return nil
}
