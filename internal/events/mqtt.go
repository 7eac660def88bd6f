package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/camvault/internal/logging"
)

// MQTTConfig selects the broker and topic root. Events go to Topic/<kind>.
type MQTTConfig struct {
	Broker string
	Topic  string
	QoS    byte

	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

type MQTTPublisher struct {
	client mqtt.Client
	cfg    MQTTConfig
	logger logging.Logger
}

// NewMQTTPublisher connects to cfg.Broker and returns a publisher. The client
// reconnects on its own after the initial connection succeeds.
func NewMQTTPublisher(ctx context.Context, cfg MQTTConfig, logger logging.Logger) (*MQTTPublisher, error) {
	cfg = withDefaults(cfg)
	logger = logger.With("module", "events")

	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("camvault-" + uuid.NewString())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		logger.Info(ctx, "mqtt connection established", "broker", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn(ctx, "mqtt connection lost, will auto-reconnect", "broker", broker, "error", err)
	}

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	return newMQTTPublisher(client, cfg, logger), nil
}

func newMQTTPublisher(client mqtt.Client, cfg MQTTConfig, logger logging.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, cfg: withDefaults(cfg), logger: logger}
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	if !p.client.IsConnectionOpen() {
		return errors.New("mqtt not connected")
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := p.cfg.Topic + "/" + ev.Kind

	token := p.client.Publish(topic, p.cfg.QoS, false, payload)
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	p.logger.Debug(ctx, "event published", "topic", topic, "size", len(payload))
	return nil
}

// Close disconnects with a short grace period for in-flight messages.
func (p *MQTTPublisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func withDefaults(cfg MQTTConfig) MQTTConfig {
	if cfg.Topic == "" {
		cfg.Topic = "camvault/frames"
	}
	cfg.Topic = strings.TrimRight(cfg.Topic, "/")
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	return cfg
}
