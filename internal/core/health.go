package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sliink/liveplot/internal/model"
)

const metricsNamespace = "liveplot"

// HealthMonitor tracks component health and exports plotting metrics.
// Metrics live on a private registry so several monitors can coexist in
// one process.
type HealthMonitor struct {
	components map[string]Component
	metrics    map[string]interface{}
	events     map[model.EventType]uint64
	mutex      sync.RWMutex

	registry      *prometheus.Registry
	storeEvents   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	targetEvents  *prometheus.CounterVec
	liveTargets   prometheus.Gauge
	draws         *prometheus.CounterVec
	drawDuration  prometheus.Histogram
	BaseComponent
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor() *HealthMonitor {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &HealthMonitor{
		components: make(map[string]Component),
		metrics:    make(map[string]interface{}),
		events:     make(map[model.EventType]uint64),
		registry:   registry,
		storeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "store_events_total",
			Help:      "Keyspace events received from the store, by event kind.",
		}, []string{"kind"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifications_total",
			Help:      "Change notifications fanned out to render targets, by outcome.",
		}, []string{"outcome"}),
		targetEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "target_events_total",
			Help:      "Render target lifecycle and redraw events, by event type.",
		}, []string{"event"}),
		liveTargets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "targets",
			Help:      "Render targets currently alive.",
		}),
		draws: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "draws_total",
			Help:      "One-shot draw requests, by result.",
		}, []string{"result"}),
		drawDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "draw_duration_seconds",
			Help:      "Time spent extracting and rendering one-shot draws.",
			Buckets:   prometheus.DefBuckets,
		}),
		BaseComponent: NewBaseComponent("health_monitor", "Health Monitor"),
	}
}

// Initialize prepares the health monitor for operation
func (h *HealthMonitor) Initialize() bool {
	h.SetStatus(model.StatusInitialized)
	return true
}

// Start begins health monitor operation
func (h *HealthMonitor) Start() bool {
	h.SetStatus(model.StatusRunning)
	return true
}

// Stop halts health monitor operation
func (h *HealthMonitor) Stop() bool {
	h.mutex.Lock()
	h.metrics = make(map[string]interface{})
	h.mutex.Unlock()

	h.SetStatus(model.StatusStopped)
	return true
}

// Gatherer exposes the metrics registry for scraping
func (h *HealthMonitor) Gatherer() prometheus.Gatherer {
	return h.registry
}

// RegisterComponent adds a component to be monitored
func (h *HealthMonitor) RegisterComponent(component Component) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.components[component.ID()] = component
}

// Observe records an event published on the event bus
func (h *HealthMonitor) Observe(event Event) {
	h.mutex.Lock()
	h.events[event.Type]++
	h.mutex.Unlock()

	switch event.Type {
	case model.EventTargetCreated:
		h.liveTargets.Inc()
	case model.EventTargetClosed:
		h.liveTargets.Dec()
	case model.EventRedrawSkipped:
		if info, ok := event.Data.(model.TargetInfo); ok {
			h.AddMetric("last_redraw_skipped", info.ID, map[string]interface{}{
				"error":   info.LastError,
				"skipped": info.Skipped,
			})
		}
	case model.EventError:
		if err, ok := event.Data.(error); ok {
			h.AddMetric("last_error", err.Error(), map[string]interface{}{
				"source": event.SourceID,
			})
		}
	}
	h.targetEvents.WithLabelValues(string(event.Type)).Inc()
}

// RecordStoreEvent counts one keyspace event and the fan-out it caused
func (h *HealthMonitor) RecordStoreEvent(kind string, result NotifyResult) {
	h.storeEvents.WithLabelValues(kind).Inc()
	h.notifications.WithLabelValues("delivered").Add(float64(result.Delivered))
	h.notifications.WithLabelValues("dropped").Add(float64(result.Dropped))
	h.notifications.WithLabelValues("pruned").Add(float64(result.Pruned))
}

// RecordDraw counts one one-shot draw
func (h *HealthMonitor) RecordDraw(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.draws.WithLabelValues(result).Inc()
	h.drawDuration.Observe(elapsed.Seconds())

	metadata := map[string]interface{}{"elapsed": elapsed.String()}
	if err != nil {
		metadata["error"] = err.Error()
	}
	h.AddMetric("last_draw", result, metadata)
}

// EventCount returns how many events of a type have been observed
func (h *HealthMonitor) EventCount(eventType model.EventType) uint64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.events[eventType]
}

// AddMetric records the latest value of a named detail, shown under the
// details of the health status
func (h *HealthMonitor) AddMetric(name string, value interface{}, metadata map[string]interface{}) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	metadata["value"] = value
	metadata["timestamp"] = time.Now()

	h.metrics[name] = metadata
}

func (h *HealthMonitor) copyMetrics() map[string]interface{} {
	metrics := make(map[string]interface{}, len(h.metrics))
	for k, v := range h.metrics {
		metrics[k] = v
	}
	return metrics
}

// GetHealthStatus retrieves the health status of the system
func (h *HealthMonitor) GetHealthStatus() model.HealthStatus {
	h.mutex.RLock()
	components := make(map[string]model.HealthStatus, len(h.components))
	for id, component := range h.components {
		status := component.GetStatus()
		components[id] = model.HealthStatus{
			Status:    status,
			Timestamp: time.Now(),
			Message:   component.Name() + " status: " + string(status),
		}
	}
	details := h.copyMetrics()
	events := make(map[string]uint64, len(h.events))
	for eventType, n := range h.events {
		events[string(eventType)] = n
	}
	h.mutex.RUnlock()

	if len(events) > 0 {
		details["events"] = events
	}

	statusCounts := make(map[model.ComponentStatus]int)
	for _, health := range components {
		statusCounts[health.Status]++
	}

	systemStatus := model.StatusRunning
	var statusMessage string
	switch {
	case statusCounts[model.StatusError] > 0:
		systemStatus = model.StatusError
		statusMessage = fmt.Sprintf("System has errors: %d components in ERROR state", statusCounts[model.StatusError])
	case len(components) > 0 && statusCounts[model.StatusStopped] == len(components):
		systemStatus = model.StatusStopped
		statusMessage = "System is stopped"
	case statusCounts[model.StatusRunning] == 0:
		systemStatus = model.StatusInitialized
		statusMessage = "System is initializing"
	case statusCounts[model.StatusRunning] < len(components):
		statusMessage = fmt.Sprintf("System is partially running: %d of %d components running",
			statusCounts[model.StatusRunning], len(components))
	default:
		statusMessage = "System is healthy: all components running"
	}

	return model.HealthStatus{
		Status:     systemStatus,
		Timestamp:  time.Now(),
		Message:    statusMessage,
		Components: components,
		Details:    details,
	}
}
