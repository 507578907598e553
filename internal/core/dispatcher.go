package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sliink/liveplot/internal/argparse"
	"github.com/sliink/liveplot/internal/model"
)

// DispatcherState is the lifecycle state of the dispatcher loop
type DispatcherState int32

const (
	// StateIdle means the loop runs but no target has been created yet
	StateIdle DispatcherState = iota
	// StateRunning means at least one target has been created
	StateRunning
	// StateShuttingDown means shutdown was signalled and targets are being closed
	StateShuttingDown
	// StateStopped means the loop has exited
	StateStopped
)

// String returns the state name
func (s DispatcherState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("DispatcherState(%d)", int32(s))
	}
}

const (
	// DefaultRedrawTimeout bounds a single store read during a redraw
	DefaultRedrawTimeout = 2 * time.Second
	stopTimeout          = 5 * time.Second
)

type bindRequest struct {
	id   string
	spec model.BindingSpec
}

// DispatcherOption customizes a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithMailboxCapacity caps every target mailbox. Zero means unbounded.
func WithMailboxCapacity(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.mailboxCap = n
	}
}

// WithRedrawTimeout bounds the store read of each redraw
func WithRedrawTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.redrawTimeout = timeout
		}
	}
}

// WithEventBus publishes target events on bus
func WithEventBus(bus *EventBus) DispatcherOption {
	return func(d *Dispatcher) {
		d.events = bus
	}
}

// Dispatcher owns every render target. Bind requests, close requests and
// change notifications all arrive through mailboxes sharing one wake
// channel, and a single goroutine running Run handles them in turn.
type Dispatcher struct {
	registry      *SubscriptionRegistry
	plotter       *Plotter
	surfaces      SurfaceFactory
	events        *EventBus
	lifecycle     *Lifecycle
	wake          chan struct{}
	binds         *Mailbox[bindRequest]
	closes        *Mailbox[string]
	mailboxCap    int
	redrawTimeout time.Duration

	// owned by the Run goroutine
	targets map[string]*RenderTarget
	order   []string

	snapshot      []model.TargetInfo
	snapshotMutex sync.RWMutex
	state         atomic.Int32
	started       atomic.Bool
	done          chan struct{}
	logger        *slog.Logger
	BaseComponent
}

// NewDispatcher creates a dispatcher. A nil lifecycle gives the dispatcher its own.
func NewDispatcher(registry *SubscriptionRegistry, plotter *Plotter, surfaces SurfaceFactory, lifecycle *Lifecycle, opts ...DispatcherOption) *Dispatcher {
	if lifecycle == nil {
		lifecycle = NewLifecycle()
	}
	wake := NewWakeChannel()
	d := &Dispatcher{
		registry:      registry,
		plotter:       plotter,
		surfaces:      surfaces,
		lifecycle:     lifecycle,
		wake:          wake,
		binds:         NewMailbox[bindRequest](0, wake),
		closes:        NewMailbox[string](0, wake),
		redrawTimeout: DefaultRedrawTimeout,
		targets:       make(map[string]*RenderTarget),
		done:          make(chan struct{}),
		logger:        slog.Default().With("component", "dispatcher"),
		BaseComponent: NewBaseComponent("dispatcher", "Dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Initialize prepares the dispatcher for operation
func (d *Dispatcher) Initialize() bool {
	if d.registry == nil || d.plotter == nil || d.surfaces == nil {
		return false
	}
	d.SetStatus(model.StatusInitialized)
	return true
}

// Start marks the dispatcher running. The loop itself is started with Run.
func (d *Dispatcher) Start() bool {
	d.SetStatus(model.StatusRunning)
	return true
}

// Stop signals shutdown and waits for the loop to exit
func (d *Dispatcher) Stop() bool {
	d.lifecycle.Signal()
	if !d.started.Load() {
		d.SetStatus(model.StatusStopped)
		return true
	}

	select {
	case <-d.done:
		return true
	case <-time.After(stopTimeout):
		d.logger.Warn("dispatcher: stop timeout exceeded")
		return false
	}
}

// State returns the current loop state
func (d *Dispatcher) State() DispatcherState {
	return DispatcherState(d.state.Load())
}

// Done is closed once Run has returned
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Bind queues the creation of a render target and returns its id. The
// target appears in Targets once the loop has processed the request.
func (d *Dispatcher) Bind(spec model.BindingSpec) (string, error) {
	if len(spec.Sources) == 0 || spec.Width <= 0 || spec.Height <= 0 {
		return "", fmt.Errorf("%w: binding needs sources and a positive size", argparse.ErrInvalidArgument)
	}
	if d.lifecycle.Fired() || d.State() >= StateShuttingDown {
		return "", ErrDispatcherStopped
	}

	id := uuid.NewString()
	if err := d.binds.Send(bindRequest{id: id, spec: spec.Clone()}); err != nil {
		if errors.Is(err, ErrMailboxClosed) {
			return "", ErrDispatcherStopped
		}
		return "", err
	}
	return id, nil
}

// CloseTarget queues the teardown of a live render target
func (d *Dispatcher) CloseTarget(id string) error {
	if _, ok := d.Target(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, id)
	}
	if err := d.closes.Send(id); err != nil {
		return ErrDispatcherStopped
	}
	return nil
}

// Targets returns a snapshot of every live target in creation order
func (d *Dispatcher) Targets() []model.TargetInfo {
	d.snapshotMutex.RLock()
	defer d.snapshotMutex.RUnlock()
	return append([]model.TargetInfo(nil), d.snapshot...)
}

// Target returns the snapshot of one live target
func (d *Dispatcher) Target(id string) (model.TargetInfo, bool) {
	d.snapshotMutex.RLock()
	defer d.snapshotMutex.RUnlock()
	for _, info := range d.snapshot {
		if info.ID == id {
			return info, true
		}
	}
	return model.TargetInfo{}, false
}

// Run is the dispatcher loop. It returns after shutdown is signalled or
// ctx is cancelled, once every target has been closed.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return errors.New("dispatcher already running")
	}
	defer close(d.done)

	d.logger.Info("dispatcher: loop started")
	for {
		select {
		case <-d.lifecycle.Done():
			d.shutdown()
			return nil
		case <-ctx.Done():
			d.lifecycle.Signal()
			d.shutdown()
			return nil
		case <-d.wake:
			if d.lifecycle.Fired() {
				d.shutdown()
				return nil
			}
			d.cycle(ctx)
		}
	}
}

// cycle handles everything pending: binds first, then closes, then changes
// per target in creation order
func (d *Dispatcher) cycle(ctx context.Context) {
	defer d.publishSnapshot()

	for _, req := range d.binds.Drain() {
		d.createTarget(ctx, req)
	}
	for _, id := range d.closes.Drain() {
		d.closeTarget(id)
	}

	for _, id := range append([]string(nil), d.order...) {
		if d.lifecycle.Fired() {
			return
		}
		t := d.targets[id]
		changes := t.mailbox.Drain()
		if len(changes) == 0 {
			continue
		}
		d.redraw(ctx, t, changes)
	}
}

func (d *Dispatcher) createTarget(ctx context.Context, req bindRequest) {
	surface, err := d.surfaces.Create(req.id, req.spec)
	if err != nil {
		d.logger.Error("dispatcher: failed to create surface",
			"target", req.id,
			"name", req.spec.Target,
			"error", err)
		d.publish(model.EventError, fmt.Errorf("create surface %s: %w", req.spec.Target, err))
		return
	}

	mailbox := NewMailbox[Change](d.mailboxCap, d.wake)
	t := newRenderTarget(req.id, req.spec, surface, mailbox, d.plotter.Empty())
	d.targets[t.id] = t
	d.order = append(d.order, t.id)
	for _, source := range req.spec.Sources {
		d.registry.Subscribe(source, t.id, mailbox)
	}
	d.state.CompareAndSwap(int32(StateIdle), int32(StateRunning))

	d.logger.Info("dispatcher: render target created",
		"target", t.id,
		"name", req.spec.Target,
		"surface", surface.Name(),
		"sources", req.spec.Sources)

	if req.spec.Open {
		if err := d.refresh(ctx, t); err != nil {
			d.logger.Warn("dispatcher: initial extraction failed, drawing empty plot",
				"target", t.id,
				"error", err)
			if err := t.paint(d.plotter); err != nil {
				d.logger.Warn("dispatcher: initial draw failed", "target", t.id, "error", err)
			}
		}
		d.present(t)
	}

	d.publish(model.EventTargetCreated, t.info())
}

// redraw handles the changes drained for one target. Re-extraction reads
// the current store contents, so one refresh covers every pending change.
func (d *Dispatcher) redraw(ctx context.Context, t *RenderTarget, changes []Change) {
	last := changes[len(changes)-1]
	if err := d.refresh(ctx, t); err != nil {
		d.logger.Warn("dispatcher: redraw skipped",
			"target", t.id,
			"source", last.Source,
			"error", err)
		d.publish(model.EventRedrawSkipped, t.info())
		return
	}

	if !t.surface.Visible() {
		d.present(t)
	}

	d.logger.Debug("dispatcher: target redrawn",
		"target", t.id,
		"source", last.Source,
		"changes", len(changes),
		"points", t.buffer.Size())
	d.publish(model.EventTargetRedrawn, t.info())
}

func (d *Dispatcher) refresh(ctx context.Context, t *RenderTarget) error {
	rctx, cancel := context.WithTimeout(ctx, d.redrawTimeout)
	defer cancel()
	return t.refresh(rctx, d.plotter)
}

func (d *Dispatcher) present(t *RenderTarget) {
	if err := t.surface.Present(); err != nil {
		d.logger.Warn("dispatcher: present failed", "target", t.id, "error", err)
	}
}

func (d *Dispatcher) closeTarget(id string) {
	t, ok := d.targets[id]
	if !ok {
		d.logger.Debug("dispatcher: close of unknown target ignored", "target", id)
		return
	}

	d.registry.Unsubscribe(id)
	t.mailbox.Close()
	if err := t.surface.Close(); err != nil {
		d.logger.Warn("dispatcher: surface close failed", "target", id, "error", err)
	}

	delete(d.targets, id)
	for i, oid := range d.order {
		if oid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}

	d.logger.Info("dispatcher: render target closed", "target", id)
	d.publish(model.EventTargetClosed, t.info())
}

func (d *Dispatcher) shutdown() {
	d.state.Store(int32(StateShuttingDown))
	d.logger.Info("dispatcher: shutting down", "targets", len(d.targets))

	d.binds.Close()
	d.closes.Close()
	for _, id := range append([]string(nil), d.order...) {
		d.closeTarget(id)
	}
	d.publishSnapshot()

	d.state.Store(int32(StateStopped))
	d.SetStatus(model.StatusStopped)
	d.logger.Info("dispatcher: loop stopped")
}

func (d *Dispatcher) publishSnapshot() {
	snapshot := make([]model.TargetInfo, 0, len(d.order))
	for _, id := range d.order {
		snapshot = append(snapshot, d.targets[id].info())
	}

	d.snapshotMutex.Lock()
	d.snapshot = snapshot
	d.snapshotMutex.Unlock()
}

func (d *Dispatcher) publish(eventType model.EventType, data interface{}) {
	if d.events == nil {
		return
	}
	d.events.Publish(NewEvent(eventType, d.ID(), data))
}
