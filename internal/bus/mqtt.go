// internal/bus/mqtt.go
package bus

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/modbus-bridge/internal/logfields"
)

type mqttGateway struct {
	cfg   Config
	log   *slog.Logger
	inbox *inbox

	mu     sync.Mutex
	client mqtt.Client
}

func newMQTT(cfg Config, log *slog.Logger) *mqttGateway {
	return &mqttGateway{cfg: cfg, log: log, inbox: newInbox(cfg.InboxSize)}
}

func (g *mqttGateway) broker() string {
	if strings.Contains(g.cfg.Host, "://") {
		return g.cfg.Host
	}
	return fmt.Sprintf("tcp://%s:%d", g.cfg.Host, g.cfg.Port)
}

// Setup connects and subscribes to write commands.
// Reconnection is left disabled.
func (g *mqttGateway) Setup() error {
	opts := mqtt.NewClientOptions().
		AddBroker(g.broker()).
		SetClientID(g.cfg.ClientID).
		SetConnectTimeout(g.cfg.Timeout).
		SetAutoReconnect(false).
		SetCleanSession(true)
	if g.cfg.User != "" {
		opts.SetUsername(g.cfg.User)
		opts.SetPassword(g.cfg.Pass)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		g.log.Error("MQTT connection lost", logfields.Error(err))
	})

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(g.cfg.Timeout) {
		return fmt.Errorf("bus: mqtt connect to %s timed out", g.broker())
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("bus: mqtt connect to %s: %w", g.broker(), err)
	}

	g.mu.Lock()
	g.client = client
	g.mu.Unlock()

	filter := CommandFilter(g.cfg.TopicPrefix)
	sub := client.Subscribe(filter, g.cfg.QoS, func(_ mqtt.Client, m mqtt.Message) {
		if !g.inbox.push(m.Topic(), string(m.Payload())) {
			g.log.Warn("Inbound queue full, message dropped", logfields.Topic(m.Topic()))
		}
	})
	if !sub.WaitTimeout(g.cfg.Timeout) {
		return fmt.Errorf("bus: mqtt subscribe %s timed out", filter)
	}
	if err := sub.Error(); err != nil {
		return fmt.Errorf("bus: mqtt subscribe %s: %w", filter, err)
	}

	g.log.Info("Connected to MQTT broker",
		slog.String("broker", g.broker()),
		slog.String("client_id", g.cfg.ClientID),
		slog.String("subscribe", filter))
	return nil
}

func (g *mqttGateway) Publish(topic string, payload []byte) error {
	g.mu.Lock()
	client := g.client
	g.mu.Unlock()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}

	tok := client.Publish(topic, g.cfg.QoS, false, payload)
	if !tok.WaitTimeout(g.cfg.Timeout) {
		return fmt.Errorf("bus: mqtt publish %s timed out", topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("bus: mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (g *mqttGateway) Receive() (string, string, bool) {
	return g.inbox.pop()
}

// Close is safe before Setup and when called twice.
func (g *mqttGateway) Close() error {
	g.mu.Lock()
	client := g.client
	g.client = nil
	g.mu.Unlock()

	if client == nil {
		return nil
	}
	if client.IsConnected() {
		client.Disconnect(250)
	}
	g.log.Info("MQTT connection closed")
	return nil
}
