package surface

import (
	"fmt"

	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/store"
)

// Options selects which standard surfaces a factory offers
type Options struct {
	// Board receives window frames. Required.
	Board *FrameBoard

	// Writer enables "key:<name>" targets
	Writer store.Writer

	// OutputDir enables "file:<path>" targets
	OutputDir string

	// MQTT enables "mqtt:<topic>" targets
	MQTT        Publisher
	MQTTOptions MQTTOptions
}

// NewStandardFactory creates a factory offering windows plus every
// surface enabled by opts
func NewStandardFactory(opts Options) *Factory {
	board := opts.Board
	if board == nil {
		board = NewFrameBoard()
	}

	factory := NewFactory(func(targetID, name string, _ model.BindingSpec) (model.Surface, error) {
		return NewWindowSurface(targetID, name, board), nil
	})

	if opts.Writer != nil {
		factory.Register("key", func(_, name string, spec model.BindingSpec) (model.Surface, error) {
			if spec.Watches(name) {
				return nil, fmt.Errorf("%w: %s", ErrKeyIsSource, name)
			}
			return NewKeySurface(name, opts.Writer), nil
		})
	}
	if opts.OutputDir != "" {
		factory.Register("file", func(_, name string, _ model.BindingSpec) (model.Surface, error) {
			s, err := NewFileSurface(opts.OutputDir, name)
			if err != nil {
				return nil, err
			}
			return s, nil
		})
	}
	if opts.MQTT != nil {
		factory.Register("mqtt", func(_, name string, _ model.BindingSpec) (model.Surface, error) {
			return NewMQTTSurface(name, opts.MQTT, opts.MQTTOptions), nil
		})
	}
	return factory
}
