// internal/bus/nats.go
package bus

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/tamzrod/modbus-bridge/internal/logfields"
)

// natsGateway maps slash topics onto NATS subjects ('/' <-> '.').
// The rest of the bridge only ever sees slash topics.
type natsGateway struct {
	cfg   Config
	log   *slog.Logger
	inbox *inbox

	mu   sync.Mutex
	conn *nats.Conn
	sub  *nats.Subscription
}

func newNATS(cfg Config, log *slog.Logger) (*natsGateway, error) {
	if cfg.TopicPrefix != "" && !strings.HasSuffix(cfg.TopicPrefix, "/") {
		return nil, fmt.Errorf("bus: nats topic prefix %q must end with '/'", cfg.TopicPrefix)
	}
	return &natsGateway{cfg: cfg, log: log, inbox: newInbox(cfg.InboxSize)}, nil
}

func (g *natsGateway) url() string {
	if strings.Contains(g.cfg.Host, "://") {
		return g.cfg.Host
	}
	return fmt.Sprintf("nats://%s:%d", g.cfg.Host, g.cfg.Port)
}

// Setup connects and subscribes to write commands.
func (g *natsGateway) Setup() error {
	opts := []nats.Option{
		nats.Name(g.cfg.ClientID),
		nats.Timeout(g.cfg.Timeout),
		nats.NoReconnect(),
	}
	if g.cfg.User != "" {
		opts = append(opts, nats.UserInfo(g.cfg.User, g.cfg.Pass))
	}

	conn, err := nats.Connect(g.url(), opts...)
	if err != nil {
		return fmt.Errorf("bus: failed to connect to NATS %s: %w", g.url(), err)
	}

	subject := toSubject(CommandFilter(g.cfg.TopicPrefix))
	subject = strings.Replace(subject, "+", "*", 1)

	sub, err := conn.Subscribe(subject, func(m *nats.Msg) {
		topic := fromSubject(m.Subject)
		if !g.inbox.push(topic, string(m.Data)) {
			g.log.Warn("Inbound queue full, message dropped", logfields.Topic(topic))
		}
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("bus: failed to subscribe %s: %w", subject, err)
	}

	g.mu.Lock()
	g.conn, g.sub = conn, sub
	g.mu.Unlock()

	g.log.Info("Connected to NATS",
		slog.String("url", g.url()),
		slog.String("name", g.cfg.ClientID),
		slog.String("subject", subject))
	return nil
}

func (g *natsGateway) Publish(topic string, payload []byte) error {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return ErrNotConnected
	}
	if err := conn.Publish(toSubject(topic), payload); err != nil {
		return fmt.Errorf("bus: failed to publish %s: %w", topic, err)
	}
	return nil
}

func (g *natsGateway) Receive() (string, string, bool) {
	return g.inbox.pop()
}

// Close flushes pending publishes and closes the connection.
// Safe before Setup and when called twice.
func (g *natsGateway) Close() error {
	g.mu.Lock()
	conn, sub := g.conn, g.sub
	g.conn, g.sub = nil, nil
	g.mu.Unlock()

	if conn == nil {
		return nil
	}
	var firstErr error
	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			firstErr = fmt.Errorf("bus: unsubscribe: %w", err)
		}
	}
	if err := conn.FlushTimeout(g.cfg.Timeout); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("bus: flush: %w", err)
	}
	conn.Close()
	g.log.Info("NATS connection closed")
	return firstErr
}

func toSubject(topic string) string {
	return strings.ReplaceAll(strings.TrimSuffix(topic, "/"), "/", ".")
}

func fromSubject(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}
