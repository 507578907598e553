package core

import (
	"sync"

	"github.com/sliink/liveplot/internal/model"
)

// Component represents a core system component with lifecycle management
type Component interface {
	// Initialize prepares the component for operation
	Initialize() bool

	// Start begins component operation
	Start() bool

	// Stop halts component operation
	Stop() bool

	// GetStatus returns the current component status
	GetStatus() model.ComponentStatus

	// SetStatus updates the component status
	SetStatus(status model.ComponentStatus)

	// ID returns the component's unique identifier
	ID() string

	// Name returns the component's human-readable name
	Name() string
}

// BaseComponent provides common functionality for all components.
// Status is read from API goroutines, so it is guarded.
type BaseComponent struct {
	id          string
	name        string
	status      model.ComponentStatus
	statusMutex sync.RWMutex
}

// NewBaseComponent creates a new base component
func NewBaseComponent(id, name string) BaseComponent {
	return BaseComponent{
		id:     id,
		name:   name,
		status: model.StatusUninitialized,
	}
}

// ID returns the component's unique identifier
func (c *BaseComponent) ID() string {
	return c.id
}

// Name returns the component's human-readable name
func (c *BaseComponent) Name() string {
	return c.name
}

// GetStatus returns the current component status
func (c *BaseComponent) GetStatus() model.ComponentStatus {
	c.statusMutex.RLock()
	defer c.statusMutex.RUnlock()
	return c.status
}

// SetStatus updates the component status
func (c *BaseComponent) SetStatus(status model.ComponentStatus) {
	c.statusMutex.Lock()
	defer c.statusMutex.Unlock()
	c.status = status
}
