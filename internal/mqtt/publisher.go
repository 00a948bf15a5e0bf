package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"surfsup-server/internal/config"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	qos = byte(1) // At least once delivery
)

// Status is the retained presence message published under <topic>/status.
type Status struct {
	Status   string    `json:"status"`
	Service  string    `json:"service"`
	Version  string    `json:"version,omitempty"`
	HTTPAddr string    `json:"http_addr,omitempty"`
	Since    time.Time `json:"since,omitzero"`
}

// StatusPublisher announces the API's presence on an MQTT broker. The broker
// publishes the retained offline last-will if the process dies without a
// clean disconnect.
type StatusPublisher struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	topic     string
	online    []byte
	offline   []byte
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func StatusTopic(base string) string {
	return strings.TrimSuffix(base, "/") + "/status"
}

func NewStatusPublisher(cfg config.Config, version string, logger *slog.Logger) (*StatusPublisher, error) {
	online, err := json.Marshal(Status{
		Status:   StatusOnline,
		Service:  cfg.MQTTClientID,
		Version:  version,
		HTTPAddr: cfg.HTTPAddr,
		Since:    time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("encode online status: %w", err)
	}
	offline, err := json.Marshal(Status{Status: StatusOffline, Service: cfg.MQTTClientID})
	if err != nil {
		return nil, fmt.Errorf("encode offline status: %w", err)
	}

	p := &StatusPublisher{
		cfg:     cfg,
		logger:  logger,
		topic:   StatusTopic(cfg.MQTTTopic),
		online:  online,
		offline: offline,
		stopCh:  make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	// Session settings
	opts.SetCleanSession(true)
	opts.SetBinaryWill(p.topic, p.offline, qos, true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Republish on every (re)connect; the broker may have fired the will.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := p.publish(c, p.online); err != nil {
			logger.Warn("mqtt publish online status failed", "topic", p.topic, "error", err)
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p, nil
}

// Connect establishes the broker connection. The online status is published
// by the connect handler.
func (p *StatusPublisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			p.client.Disconnect(0)
			return ctx.Err()
		case <-p.stopCh:
			p.client.Disconnect(0)
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

// Run connects, then blocks until ctx is done and disconnects cleanly.
// A failed initial connect is logged and the publisher stays idle; the
// HTTP API does not depend on the broker.
func (p *StatusPublisher) Run(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := p.Connect(connectCtx)
	cancel()
	if err != nil {
		p.logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		<-ctx.Done()
		return nil
	}

	<-ctx.Done()
	p.Disconnect()
	return nil
}

func (p *StatusPublisher) publish(c mqtt.Client, payload []byte) error {
	token := c.Publish(p.topic, qos, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", p.topic)
	}
	return token.Error()
}

// IsConnected returns whether the client is connected.
func (p *StatusPublisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect publishes the offline status and closes the connection.
// A clean disconnect does not trigger the will, so offline is sent explicitly.
// Idempotent and safe to call multiple times.
func (p *StatusPublisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.client != nil && p.IsConnected() {
		if err := p.publish(p.client, p.offline); err != nil {
			p.logger.Warn("mqtt publish offline status failed", "topic", p.topic, "error", err)
		}
	}

	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt status publisher disconnected")
}

func (p *StatusPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
