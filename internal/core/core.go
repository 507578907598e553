package core

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/sliink/liveplot/internal/argparse"
	"github.com/sliink/liveplot/internal/extract"
	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/render"
	"github.com/sliink/liveplot/internal/store"
)

const (
	listenBackoff    = time.Second
	maxListenBackoff = 30 * time.Second
)

// Core is the central coordinator of the system. It owns the dispatcher
// and its goroutine, feeds it store notifications and serves one-shot draws.
type Core struct {
	eventBus      *EventBus
	subscriptions *SubscriptionRegistry
	plotter       *Plotter
	dispatcher    *Dispatcher
	configManager *ConfigManager
	healthMonitor *HealthMonitor
	lifecycle     *Lifecycle
	backend       store.Store
	surfaces      SurfaceFactory
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	stopOnce      sync.Once
	logger        *slog.Logger
	BaseComponent
}

// NewCore creates a core reading and listening on backend and creating
// target surfaces with surfaces
func NewCore(backend store.Store, surfaces SurfaceFactory) *Core {
	ctx, cancel := context.WithCancel(context.Background())

	return &Core{
		eventBus:      NewEventBus(),
		subscriptions: NewSubscriptionRegistry(),
		configManager: NewConfigManager(),
		healthMonitor: NewHealthMonitor(),
		lifecycle:     NewLifecycle(),
		backend:       backend,
		surfaces:      surfaces,
		ctx:           ctx,
		cancel:        cancel,
		logger:        slog.Default().With("component", "core"),
		BaseComponent: NewBaseComponent("core", "Core System"),
	}
}

// GetConfigManager returns the configuration manager component
func (c *Core) GetConfigManager() *ConfigManager {
	return c.configManager
}

// GetHealthMonitor returns the health monitor component
func (c *Core) GetHealthMonitor() *HealthMonitor {
	return c.healthMonitor
}

// GetEventBus returns the event bus component
func (c *Core) GetEventBus() *EventBus {
	return c.eventBus
}

// GetSubscriptionRegistry returns the subscription registry
func (c *Core) GetSubscriptionRegistry() *SubscriptionRegistry {
	return c.subscriptions
}

// GetDispatcher returns the dispatcher. It is nil before Initialize.
func (c *Core) GetDispatcher() *Dispatcher {
	return c.dispatcher
}

// Initialize builds the plotter and dispatcher from the loaded configuration
func (c *Core) Initialize() bool {
	settings, err := c.configManager.Settings()
	if err != nil {
		c.logger.Error("invalid configuration", "error", err)
		c.SetStatus(model.StatusError)
		return false
	}

	extractOpts := []extract.Option{extract.WithBackground(settings.Background)}
	if len(settings.Palette) > 0 {
		extractOpts = append(extractOpts, extract.WithPalette(settings.Palette))
	}
	c.plotter = NewPlotter(c.backend,
		WithExtractOptions(extractOpts...),
		WithChartTitle(settings.ChartTitle))
	c.dispatcher = NewDispatcher(c.subscriptions, c.plotter, c.surfaces, c.lifecycle,
		WithMailboxCapacity(settings.MailboxCapacity),
		WithRedrawTimeout(settings.RedrawTimeout),
		WithEventBus(c.eventBus))

	components := []Component{
		c.eventBus,
		c.subscriptions,
		c.configManager,
		c.healthMonitor,
		c.plotter,
		c.dispatcher,
	}
	for _, component := range components {
		if !component.Initialize() {
			c.logger.Error("component failed to initialize", "id", component.ID())
			c.SetStatus(model.StatusError)
			return false
		}
		c.healthMonitor.RegisterComponent(component)
	}
	c.healthMonitor.RegisterComponent(c)

	for _, eventType := range []model.EventType{
		model.EventTargetCreated,
		model.EventTargetClosed,
		model.EventTargetRedrawn,
		model.EventRedrawSkipped,
		model.EventNotificationDropped,
		model.EventError,
	} {
		c.eventBus.Subscribe(eventType, c.healthMonitor.ID(), c.healthMonitor.Observe)
	}

	c.SetStatus(model.StatusInitialized)
	return true
}

// Start launches the dispatcher loop and the store listener
func (c *Core) Start() bool {
	if c.dispatcher == nil {
		return false
	}

	for _, component := range []Component{
		c.eventBus,
		c.subscriptions,
		c.configManager,
		c.healthMonitor,
		c.plotter,
		c.dispatcher,
	} {
		if !component.Start() {
			c.logger.Error("component failed to start", "id", component.ID())
			return false
		}
	}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		if err := c.dispatcher.Run(c.ctx); err != nil {
			c.logger.Error("dispatcher exited", "error", err)
			c.PublishEvent(model.EventError, c.ID(), err)
		}
	}()
	go func() {
		defer c.wg.Done()
		c.listen()
	}()

	c.SetStatus(model.StatusRunning)
	c.PublishEvent(model.EventComponentStatusChange, c.ID(), c.GetStatus())
	return true
}

// listen keeps a store listener attached until shutdown, retrying with
// backoff when the listener fails
func (c *Core) listen() {
	backoff := listenBackoff
	for {
		err := c.backend.Listen(c.ctx, c.HandleStoreEvent)
		if c.ctx.Err() != nil {
			return
		}
		if err == nil {
			c.logger.Info("store notifier closed, listener exiting")
			return
		}

		c.logger.Warn("store listener failed, retrying", "error", err, "backoff", backoff)
		c.PublishEvent(model.EventError, c.ID(), err)

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxListenBackoff {
			backoff = maxListenBackoff
		}
	}
}

// Stop signals shutdown, waits for the dispatcher to close every target
// and detaches the store listener
func (c *Core) Stop() bool {
	c.stopOnce.Do(func() {
		c.lifecycle.Signal()
		if c.dispatcher != nil {
			c.dispatcher.Stop()
		}
		c.cancel()
		c.wg.Wait()

		if c.plotter != nil {
			c.plotter.Stop()
		}
		c.healthMonitor.Stop()
		c.configManager.Stop()
		c.subscriptions.Stop()
		c.eventBus.Stop()

		c.SetStatus(model.StatusStopped)
		c.logger.Info("core stopped")
	})
	return true
}

// Done is closed once shutdown has been signalled
func (c *Core) Done() <-chan struct{} {
	return c.lifecycle.Done()
}

// HandleStoreEvent is the store notifier callback. List-mutating events
// are fanned out to every target watching key; other events are ignored.
func (c *Core) HandleStoreEvent(kind, key string) {
	if !store.IsListEvent(kind) {
		return
	}

	result := c.subscriptions.Notify(key, kind)
	c.healthMonitor.RecordStoreEvent(kind, result)
	if result.Dropped > 0 {
		c.PublishEvent(model.EventNotificationDropped, c.ID(), map[string]interface{}{
			"source":  key,
			"kind":    kind,
			"dropped": result.Dropped,
			"pruned":  result.Pruned,
		})
	}
}

// Draw parses the draw arguments, extracts, renders and returns the raw bitmap
func (c *Core) Draw(ctx context.Context, args []string) ([]byte, error) {
	img, err := c.plot(ctx, args)
	if err != nil {
		return nil, err
	}
	return render.EncodeBitmap(img), nil
}

// DrawPNG is Draw with the frame encoded as PNG
func (c *Core) DrawPNG(ctx context.Context, args []string) ([]byte, error) {
	img, err := c.plot(ctx, args)
	if err != nil {
		return nil, err
	}
	return render.EncodePNG(img)
}

func (c *Core) plot(ctx context.Context, args []string) (_ *image.RGBA, err error) {
	if c.plotter == nil {
		return nil, fmt.Errorf("core not initialized")
	}

	start := time.Now()
	defer func() {
		c.healthMonitor.RecordDraw(time.Since(start), err)
	}()

	spec, err := argparse.Parse(args)
	if err != nil {
		return nil, err
	}
	return c.plotter.Plot(ctx, spec)
}

// Bind parses the bind arguments and asks the dispatcher for a new render target
func (c *Core) Bind(args []string) (string, error) {
	spec, err := argparse.Parse(args)
	if err != nil {
		return "", err
	}
	return c.BindSpec(spec)
}

// BindSpec asks the dispatcher for a new render target
func (c *Core) BindSpec(spec model.BindingSpec) (string, error) {
	if c.dispatcher == nil {
		return "", ErrDispatcherStopped
	}
	id, err := c.dispatcher.Bind(spec)
	if err != nil {
		return "", err
	}
	c.logger.Info("bind requested", "target", id, "sources", spec.Sources, "name", spec.Target)
	return id, nil
}

// CloseTarget asks the dispatcher to tear down a render target
func (c *Core) CloseTarget(id string) error {
	if c.dispatcher == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, id)
	}
	return c.dispatcher.CloseTarget(id)
}

// Targets returns a snapshot of every live render target
func (c *Core) Targets() []model.TargetInfo {
	if c.dispatcher == nil {
		return nil
	}
	return c.dispatcher.Targets()
}

// Target returns the snapshot of one live render target
func (c *Core) Target(id string) (model.TargetInfo, bool) {
	if c.dispatcher == nil {
		return model.TargetInfo{}, false
	}
	return c.dispatcher.Target(id)
}

// Status reports component health plus dispatcher details
func (c *Core) Status() model.HealthStatus {
	status := c.healthMonitor.GetHealthStatus()
	if status.Details == nil {
		status.Details = make(map[string]any)
	}
	if c.dispatcher != nil {
		status.Details["dispatcher_state"] = c.dispatcher.State().String()
		status.Details["targets"] = len(c.dispatcher.Targets())
	}
	status.Details["sources"] = c.subscriptions.Sources()
	return status
}

// PublishEvent publishes an event to the event bus
func (c *Core) PublishEvent(eventType model.EventType, sourceID string, data interface{}) {
	if c.eventBus == nil {
		return
	}
	c.eventBus.Publish(NewEvent(eventType, sourceID, data))
}
