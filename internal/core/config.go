package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sliink/liveplot/internal/model"
)

// ConfigManager handles loading, storing, and accessing configuration.
// Values are addressed by dotted paths such as "store.redis.addr".
type ConfigManager struct {
	config     map[string]interface{}
	watchers   map[string][]func(interface{})
	mutex      sync.RWMutex
	configFile string
	BaseComponent
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config:        make(map[string]interface{}),
		watchers:      make(map[string][]func(interface{})),
		BaseComponent: NewBaseComponent("config_manager", "Configuration Manager"),
	}
}

// Initialize prepares the configuration manager for operation
func (m *ConfigManager) Initialize() bool {
	m.SetStatus(model.StatusInitialized)
	return true
}

// Start begins configuration manager operation
func (m *ConfigManager) Start() bool {
	m.SetStatus(model.StatusRunning)
	return true
}

// Stop halts configuration manager operation
func (m *ConfigManager) Stop() bool {
	m.mutex.Lock()
	m.watchers = make(map[string][]func(interface{}))
	m.mutex.Unlock()

	m.SetStatus(model.StatusStopped)
	return true
}

func isJSON(configFile string) bool {
	return strings.EqualFold(filepath.Ext(configFile), ".json")
}

// LoadConfig loads configuration from a YAML or JSON file, chosen by extension
func (m *ConfigManager) LoadConfig(configFile string) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	config := make(map[string]interface{})
	if isJSON(configFile) {
		err = json.Unmarshal(data, &config)
	} else {
		err = yaml.Unmarshal(data, &config)
	}
	if err != nil {
		return fmt.Errorf("error parsing config file %s: %w", configFile, err)
	}
	if config == nil {
		config = make(map[string]interface{})
	}

	m.mutex.Lock()
	m.configFile = configFile
	pending := m.replaceLocked(config)
	m.mutex.Unlock()

	notify(pending)
	return nil
}

// Reload reads the last loaded file again
func (m *ConfigManager) Reload() error {
	m.mutex.RLock()
	configFile := m.configFile
	m.mutex.RUnlock()

	if configFile == "" {
		return fmt.Errorf("no config file loaded")
	}
	return m.LoadConfig(configFile)
}

type notification struct {
	callback func(interface{})
	value    interface{}
}

func notify(pending []notification) {
	for _, n := range pending {
		go n.callback(n.value)
	}
}

// replaceLocked swaps the whole configuration. Every watcher is due a
// notification since any path may have changed.
func (m *ConfigManager) replaceLocked(config map[string]interface{}) []notification {
	m.config = config
	var pending []notification
	for path, callbacks := range m.watchers {
		value := m.lookup(path, nil)
		for _, callback := range callbacks {
			pending = append(pending, notification{callback, value})
		}
	}
	return pending
}

// GetConfig retrieves a configuration value
func (m *ConfigManager) GetConfig(path string, defaultValue interface{}) interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.lookup(path, defaultValue)
}

func (m *ConfigManager) lookup(path string, defaultValue interface{}) interface{} {
	if path == "" {
		return m.config
	}

	parts := strings.Split(path, ".")
	current := m.config
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return defaultValue
		}
		if i == len(parts)-1 {
			return v
		}
		current, ok = v.(map[string]interface{})
		if !ok {
			return defaultValue
		}
	}
	return defaultValue
}

// GetString returns the value at path as a string
func (m *ConfigManager) GetString(path, defaultValue string) string {
	switch v := m.GetConfig(path, nil).(type) {
	case string:
		return v
	case nil:
		return defaultValue
	default:
		return fmt.Sprint(v)
	}
}

// GetInt returns the value at path as an int. JSON numbers and numeric strings are accepted.
func (m *ConfigManager) GetInt(path string, defaultValue int) int {
	switch v := m.GetConfig(path, nil).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetBool returns the value at path as a bool
func (m *ConfigManager) GetBool(path string, defaultValue bool) bool {
	switch v := m.GetConfig(path, nil).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetDuration returns the value at path as a duration. Strings use
// time.ParseDuration syntax; bare numbers are seconds.
func (m *ConfigManager) GetDuration(path string, defaultValue time.Duration) time.Duration {
	switch v := m.GetConfig(path, nil).(type) {
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return defaultValue
}

// GetStrings returns the value at path as a string list
func (m *ConfigManager) GetStrings(path string) []string {
	switch v := m.GetConfig(path, nil).(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case string:
		return []string{v}
	}
	return nil
}

// SetConfig sets a configuration value
func (m *ConfigManager) SetConfig(path string, value interface{}) error {
	var pending []notification

	m.mutex.Lock()
	if path == "" {
		newConfig, ok := value.(map[string]interface{})
		if !ok {
			m.mutex.Unlock()
			return fmt.Errorf("cannot set root config to non-map value")
		}
		pending = m.replaceLocked(newConfig)
	} else {
		parts := strings.Split(path, ".")
		current := m.config
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = value

		for i := 0; i <= len(parts); i++ {
			subPath := strings.Join(parts[:i], ".")
			for _, callback := range m.watchers[subPath] {
				pending = append(pending, notification{callback, m.lookup(subPath, nil)})
			}
		}
	}
	m.mutex.Unlock()

	notify(pending)
	return nil
}

// WatchConfig registers a callback for configuration changes. The callback
// is invoked asynchronously, first with the current value.
func (m *ConfigManager) WatchConfig(path string, callback func(interface{})) {
	m.mutex.Lock()
	m.watchers[path] = append(m.watchers[path], callback)
	current := m.lookup(path, nil)
	m.mutex.Unlock()

	go callback(current)
}

// Settings is the typed view of the configuration used to wire the process
type Settings struct {
	StoreDriver            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	ConfigureNotifications bool

	APIEnabled bool
	APIHost    string
	APIPort    int

	Palette    []model.RGB
	Background model.RGB
	ChartTitle string

	MailboxCapacity int
	RedrawTimeout   time.Duration

	OutputDir    string
	MQTTBroker   string
	MQTTClientID string
	MQTTQoS      int
	MQTTRetained bool
	LogLevel     string
	LogFormat    string
}

// DefaultSettings returns the settings used when no configuration is given
func DefaultSettings() Settings {
	return Settings{
		StoreDriver:   "redis",
		RedisAddr:     "localhost:6379",
		APIEnabled:    true,
		APIHost:       "127.0.0.1",
		APIPort:       8080,
		Background:    model.RGB{R: 255, G: 255, B: 255},
		RedrawTimeout: DefaultRedrawTimeout,
		OutputDir:     ".",
		MQTTClientID:  "liveplot",
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Settings resolves the typed settings, falling back to DefaultSettings
// for anything not configured
func (m *ConfigManager) Settings() (Settings, error) {
	s := DefaultSettings()

	s.StoreDriver = m.GetString("store.driver", s.StoreDriver)
	s.RedisAddr = m.GetString("store.redis.addr", s.RedisAddr)
	s.RedisPassword = m.GetString("store.redis.password", s.RedisPassword)
	s.RedisDB = m.GetInt("store.redis.db", s.RedisDB)
	s.ConfigureNotifications = m.GetBool("store.redis.configure_notifications", s.ConfigureNotifications)

	s.APIEnabled = m.GetBool("api.enabled", s.APIEnabled)
	s.APIHost = m.GetString("api.host", s.APIHost)
	s.APIPort = m.GetInt("api.port", s.APIPort)

	for _, hex := range m.GetStrings("render.palette") {
		c, err := model.ParseRGB(hex)
		if err != nil {
			return s, fmt.Errorf("render.palette: %w", err)
		}
		s.Palette = append(s.Palette, c)
	}
	if hex := m.GetString("render.background", ""); hex != "" {
		c, err := model.ParseRGB(hex)
		if err != nil {
			return s, fmt.Errorf("render.background: %w", err)
		}
		s.Background = c
	}
	s.ChartTitle = m.GetString("render.title", s.ChartTitle)

	s.MailboxCapacity = m.GetInt("dispatcher.mailbox_cap", s.MailboxCapacity)
	s.RedrawTimeout = m.GetDuration("dispatcher.redraw_timeout", s.RedrawTimeout)

	s.OutputDir = m.GetString("surfaces.output_dir", s.OutputDir)
	s.MQTTBroker = m.GetString("surfaces.mqtt.broker", s.MQTTBroker)
	s.MQTTClientID = m.GetString("surfaces.mqtt.client_id", s.MQTTClientID)
	s.MQTTQoS = m.GetInt("surfaces.mqtt.qos", s.MQTTQoS)
	s.MQTTRetained = m.GetBool("surfaces.mqtt.retained", s.MQTTRetained)

	s.LogLevel = m.GetString("log.level", s.LogLevel)
	s.LogFormat = m.GetString("log.format", s.LogFormat)

	switch s.StoreDriver {
	case "redis", "memory":
	default:
		return s, fmt.Errorf("store.driver: unknown driver %q", s.StoreDriver)
	}
	if s.MQTTQoS < 0 || s.MQTTQoS > 2 {
		return s, fmt.Errorf("surfaces.mqtt.qos: %d out of range", s.MQTTQoS)
	}
	return s, nil
}
