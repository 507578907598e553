package model

import "time"

// ComponentStatus represents the current status of a component
type ComponentStatus string

const (
	// StatusUninitialized indicates the component has not been initialized
	StatusUninitialized ComponentStatus = "UNINITIALIZED"
	// StatusInitialized indicates the component has been initialized but not started
	StatusInitialized ComponentStatus = "INITIALIZED"
	// StatusRunning indicates the component is currently running
	StatusRunning ComponentStatus = "RUNNING"
	// StatusStopped indicates the component has been stopped
	StatusStopped ComponentStatus = "STOPPED"
	// StatusError indicates the component is in an error state
	StatusError ComponentStatus = "ERROR"
)

// EventType represents the type of system event
type EventType string

const (
	// EventComponentStatusChange indicates a component status has changed
	EventComponentStatusChange EventType = "COMPONENT_STATUS_CHANGE"
	// EventTargetCreated indicates the dispatcher created a render target
	EventTargetCreated EventType = "TARGET_CREATED"
	// EventTargetClosed indicates a render target was torn down
	EventTargetClosed EventType = "TARGET_CLOSED"
	// EventTargetRedrawn indicates a render target was re-extracted and redrawn
	EventTargetRedrawn EventType = "TARGET_REDRAWN"
	// EventRedrawSkipped indicates a redraw failed and the previous frame was kept
	EventRedrawSkipped EventType = "REDRAW_SKIPPED"
	// EventNotificationDropped indicates a change notification could not be delivered
	EventNotificationDropped EventType = "NOTIFICATION_DROPPED"
	// EventError indicates an error has occurred
	EventError EventType = "ERROR"
)

// HealthStatus represents the health status of the system or a component
type HealthStatus struct {
	Status     ComponentStatus         `json:"status"`
	Timestamp  time.Time               `json:"timestamp"`
	Message    string                  `json:"message,omitempty"`
	Details    map[string]any          `json:"details,omitempty"`
	Components map[string]HealthStatus `json:"components,omitempty"`
}

// MailboxStatus represents the status of a target mailbox
type MailboxStatus struct {
	Pending    int       `json:"pending"`
	Delivered  uint64    `json:"delivered"`
	Dropped    uint64    `json:"dropped"`
	Closed     bool      `json:"closed"`
	LastUpdate time.Time `json:"last_update"`
}

// TargetInfo is a read-only snapshot of a render target, safe to hand to
// goroutines other than the dispatcher's.
type TargetInfo struct {
	ID         string        `json:"id"`
	Spec       BindingSpec   `json:"spec"`
	Surface    string        `json:"surface"`
	Visible    bool          `json:"visible"`
	Redraws    uint64        `json:"redraws"`
	Skipped    uint64        `json:"skipped"`
	Points     int           `json:"points"`
	LastError  string        `json:"last_error,omitempty"`
	LastRedraw time.Time     `json:"last_redraw"`
	Mailbox    MailboxStatus `json:"mailbox"`
}
