package surface

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sliink/liveplot/internal/render"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// Publisher is the part of mqtt.Client used by MQTTSurface
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTOptions configures how frames are published
type MQTTOptions struct {
	QoS      byte
	Retained bool
}

// ConnectMQTT connects a client to broker with automatic reconnection
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		slog.Info("mqtt connection established", "broker", broker, "client_id", clientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("mqtt connection lost, will auto-reconnect", "broker", broker, "error", err)
	}

	client := mqtt.NewClient(opts)
	slog.Info("connecting to mqtt broker", "broker", broker)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return client, nil
}

// MQTTSurface publishes each presented frame as a PNG payload on a topic
type MQTTSurface struct {
	topic     string
	publisher Publisher
	options   MQTTOptions
	BaseSurface
}

// NewMQTTSurface creates a hidden surface publishing on topic
func NewMQTTSurface(topic string, publisher Publisher, options MQTTOptions) *MQTTSurface {
	s := &MQTTSurface{
		topic:     topic,
		publisher: publisher,
		options:   options,
	}
	s.BaseSurface = NewBaseSurface("mqtt:"+topic, s.publish)
	return s
}

func (s *MQTTSurface) publish(frame *image.RGBA) error {
	data, err := render.EncodePNG(frame)
	if err != nil {
		return err
	}

	token := s.publisher.Publish(s.topic, s.options.QoS, s.options.Retained, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}

	slog.Debug("frame published", "topic", s.topic, "qos", s.options.QoS, "size", len(data))
	return nil
}
