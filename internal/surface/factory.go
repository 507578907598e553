package surface

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sliink/liveplot/internal/model"
)

// Creator builds a surface for a target. name is the target name with the
// scheme prefix removed.
type Creator func(targetID, name string, spec model.BindingSpec) (model.Surface, error)

// Factory creates surfaces from target names. A name of the form
// "scheme:rest" goes to the creator registered for scheme; every other
// name goes to the fallback creator.
type Factory struct {
	creators map[string]Creator
	fallback Creator
	mutex    sync.RWMutex
}

// NewFactory creates a factory with the given fallback creator
func NewFactory(fallback Creator) *Factory {
	return &Factory{
		creators: make(map[string]Creator),
		fallback: fallback,
	}
}

// Register adds a creator for a scheme
func (f *Factory) Register(scheme string, creator Creator) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.creators[scheme] = creator
}

// Schemes returns the registered schemes, sorted
func (f *Factory) Schemes() []string {
	f.mutex.RLock()
	schemes := make([]string, 0, len(f.creators))
	for scheme := range f.creators {
		schemes = append(schemes, scheme)
	}
	f.mutex.RUnlock()

	sort.Strings(schemes)
	return schemes
}

// Create builds the surface for a new render target
func (f *Factory) Create(targetID string, spec model.BindingSpec) (model.Surface, error) {
	if scheme, rest, ok := strings.Cut(spec.Target, ":"); ok {
		f.mutex.RLock()
		creator, exists := f.creators[scheme]
		f.mutex.RUnlock()

		if exists {
			if rest == "" {
				return nil, fmt.Errorf("target %q: empty %s name", spec.Target, scheme)
			}
			return creator(targetID, rest, spec)
		}
	}

	if f.fallback == nil {
		return nil, fmt.Errorf("target %q: no surface available", spec.Target)
	}
	return f.fallback(targetID, spec.Target, spec)
}
