// internal/bus/bus.go
package bus

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/modbus-bridge/internal/config"
)

// ErrNotConnected is returned by Publish before Setup or after Close.
var ErrNotConnected = errors.New("bus: not connected")

// Gateway owns the pub/sub connection.
// Receive never blocks: it reports ok=false when nothing is queued.
type Gateway interface {
	Setup() error
	Publish(topic string, payload []byte) error
	Receive() (topic, payload string, ok bool)
	Close() error
}

// Config is the connection surface shared by both backends.
type Config struct {
	Kind        string
	Host        string
	Port        int
	User        string
	Pass        string
	QoS         byte
	TopicPrefix string
	ClientID    string
	Timeout     time.Duration
	InboxSize   int
}

// FromOptions derives a bus config from runtime options.
func FromOptions(o config.Options) Config {
	return Config{
		Kind:        o.BusKind,
		Host:        o.BusHost,
		Port:        o.BusPort,
		User:        o.BusUser,
		Pass:        o.BusPass,
		QoS:         o.BusQoS,
		TopicPrefix: o.TopicPrefix,
	}
}

// New selects the backend for cfg.Kind. It does not connect.
func New(cfg Config, log *slog.Logger) (Gateway, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "modpoll-" + uuid.NewString()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}

	switch cfg.Kind {
	case config.BusMQTT, "":
		return newMQTT(cfg, log), nil
	case config.BusNATS:
		g, err := newNATS(cfg, log)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("bus: unsupported kind %q", cfg.Kind)
	}
}

// CommandFilter is the subscription pattern for write commands in slash form.
func CommandFilter(prefix string) string {
	return prefix + "+/set"
}
