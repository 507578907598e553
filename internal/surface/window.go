package surface

import (
	"image"

	"github.com/sliink/liveplot/internal/render"
)

// WindowSurface is an in-process window. Its presented frames are posted
// to a FrameBoard where the HTTP API serves them.
type WindowSurface struct {
	targetID string
	board    *FrameBoard
	BaseSurface
}

// NewWindowSurface creates a hidden window for targetID
func NewWindowSurface(targetID, name string, board *FrameBoard) *WindowSurface {
	s := &WindowSurface{
		targetID: targetID,
		board:    board,
	}
	s.BaseSurface = NewBaseSurface("window:"+name, s.post)
	return s
}

func (s *WindowSurface) post(frame *image.RGBA) error {
	data, err := render.EncodePNG(frame)
	if err != nil {
		return err
	}
	s.board.Put(Frame{
		TargetID: s.targetID,
		Name:     s.Name(),
		Width:    frame.Bounds().Dx(),
		Height:   frame.Bounds().Dy(),
		PNG:      data,
	})
	return nil
}

// Close removes the window's frame from the board
func (s *WindowSurface) Close() error {
	s.board.Remove(s.targetID)
	return s.BaseSurface.Close()
}
