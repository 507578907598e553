package model

import "image"

// Surface is a drawing destination owned by the dispatcher goroutine.
// Implementations are never touched from any other goroutine.
type Surface interface {
	// Draw hands a freshly rendered frame to the surface
	Draw(frame *image.RGBA) error

	// Present makes the surface visible and flushes the latest frame
	Present() error

	// Visible reports whether Present has been called
	Visible() bool

	// Close releases the surface
	Close() error

	// Name returns a descriptive name for logging
	Name() string
}
