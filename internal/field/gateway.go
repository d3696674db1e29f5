// internal/field/gateway.go
package field

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/tamzrod/modbus-bridge/internal/clock"
	cfg "github.com/tamzrod/modbus-bridge/internal/config"
	"github.com/tamzrod/modbus-bridge/internal/export"
	"github.com/tamzrod/modbus-bridge/internal/logfields"
	"github.com/tamzrod/modbus-bridge/internal/metrics"
	"github.com/tamzrod/modbus-bridge/internal/output"
	"github.com/tamzrod/modbus-bridge/internal/poller"
	"github.com/tamzrod/modbus-bridge/internal/status"
	"github.com/tamzrod/modbus-bridge/internal/writer"
)

// ErrUnknownDevice means a write named a device that is not configured.
var ErrUnknownDevice = writer.ErrUnknownDevice

// Publisher is the bus side the gateway publishes through.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Options tune the gateway. Zero values are usable.
type Options struct {
	TopicPrefix string
	SingleTopic bool
	DeviceDelay time.Duration
	PrintTable  bool
	TableOut    io.Writer
}

// Gateway owns the field-protocol side of the bridge: device connections,
// the last poll round, per-device health and the export sink.
// All methods are called from the scheduling loop's goroutine.
type Gateway struct {
	opts      Options
	devices   []cfg.DeviceConfig
	connector Connector
	pub       Publisher
	clock     clock.Clock
	log       *slog.Logger
	rec       *metrics.Recorder

	cancel   poller.Cancelled
	pollers  []*poller.Poller
	writer   writer.Writer
	trackers map[string]*status.Tracker
	last     []poller.PollResult
	sinks    map[string]export.Sink
	closed   bool
}

// New prepares a gateway. Nothing is connected until Setup.
// pub may be nil when no bus is configured.
func New(devices []cfg.DeviceConfig, opts Options, conn Connector, pub Publisher, clk clock.Clock, log *slog.Logger, rec *metrics.Recorder) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		opts:      opts,
		devices:   devices,
		connector: conn,
		pub:       pub,
		clock:     clk,
		log:       log,
		rec:       rec,
		trackers:  make(map[string]*status.Tracker),
		sinks:     make(map[string]export.Sink),
	}
}

// Setup connects every device and builds its poller. The cancellation
// flag is observed between devices during Poll.
// On error the caller must still Close the gateway.
func (g *Gateway) Setup(cancel poller.Cancelled) error {
	if g.connector == nil {
		return errors.New("field: connector required")
	}
	g.cancel = cancel

	clients := make(map[string]writer.DeviceClient, len(g.devices))
	for _, d := range g.devices {
		conn, err := g.connector.Connect(d)
		if err != nil {
			return fmt.Errorf("field: connect device %s: %w", d.Name, err)
		}

		p, err := poller.Build(d, conn)
		if err != nil {
			return fmt.Errorf("field: build poller for %s: %w", d.Name, err)
		}

		g.pollers = append(g.pollers, p)
		clients[d.Name] = conn
		g.trackers[d.Name] = status.NewTracker()

		g.log.Info("Device configured",
			logfields.Device(d.Name),
			slog.Int("unit_id", int(d.UnitID)),
			slog.Int("polls", len(d.Polls)))
	}
	g.writer = writer.New(clients)
	return nil
}

// Poll reads every device once. Failures are recorded per device and
// never returned.
func (g *Gateway) Poll() {
	results := poller.RunAll(g.pollers, g.cancel, g.opts.DeviceDelay)

	for _, res := range results {
		if tr := g.trackers[res.Device]; tr != nil {
			tr.ObservePoll(res.At, res.Err)
		}
		g.rec.ObservePoll(res.Device, res.Duration, res.Err == nil)

		if res.Err != nil {
			g.log.Warn("Poll failed", logfields.Device(res.Device), logfields.Error(res.Err))
			continue
		}
		g.log.Debug("Poll succeeded",
			logfields.Device(res.Device),
			slog.Int("values", len(res.Values)),
			slog.Duration("duration", res.Duration))
	}

	g.last = results

	if g.opts.PrintTable && len(results) > 0 {
		output.RenderPoll(g.opts.TableOut, results)
	}
}

// Publish sends the last poll round to the bus. A nil timestamp lets each
// device's own poll completion time stand.
func (g *Gateway) Publish(timestamp *float64) {
	if g.pub == nil {
		return
	}

	for _, res := range g.last {
		if res.Err != nil {
			continue
		}
		at := g.stamp(res, timestamp)

		if g.opts.SingleTopic {
			for _, v := range res.Values {
				body, err := json.Marshal(map[string]any{"value": jsonValue(v.Value), "timestamp_ms": at.UnixMilli()})
				if err == nil {
					err = g.pub.Publish(g.opts.TopicPrefix+res.Device+"/"+v.Name, body)
				}
				g.published("data", res.Device, err)
			}
			continue
		}

		payload := make(map[string]any, len(res.Values)+1)
		for _, v := range res.Values {
			payload[v.Name] = jsonValue(v.Value)
		}
		payload["timestamp_ms"] = at.UnixMilli()

		body, err := json.Marshal(payload)
		if err == nil {
			err = g.pub.Publish(g.opts.TopicPrefix+res.Device+"/data", body)
		}
		g.published("data", res.Device, err)
	}
}

// PublishDiagnostics publishes every device's health snapshot, or logs it
// when no bus is configured.
func (g *Gateway) PublishDiagnostics() {
	now := clock.Time(g.clock.Now())

	for _, d := range g.devices {
		tr := g.trackers[d.Name]
		if tr == nil {
			continue
		}
		snap := tr.Snapshot(now)

		if g.pub == nil {
			g.log.Info("Diagnostics",
				logfields.Device(d.Name),
				slog.String("health", status.HealthName(snap.Health)),
				slog.Uint64("polls_total", snap.PollsTotal),
				slog.Uint64("polls_failed", snap.PollsFailed),
				slog.Int("seconds_in_error", int(snap.SecondsInError)))
			continue
		}

		body, err := status.Encode(d.Name, snap, now)
		if err == nil {
			err = g.pub.Publish(g.opts.TopicPrefix+d.Name+"/diagnostics", body)
		}
		g.published("diagnostics", d.Name, err)
	}
}

// Export writes the last poll round to the sink at path. Sinks are opened
// on first use and kept until Close.
func (g *Gateway) Export(path string, timestamp *float64) {
	var samples []export.Sample
	for _, res := range g.last {
		if res.Err != nil {
			continue
		}
		at := g.stamp(res, timestamp)
		for _, v := range res.Values {
			samples = append(samples, export.Sample{Timestamp: at, Device: res.Device, Ref: v.Name, Value: v.Value})
		}
	}
	if len(samples) == 0 {
		return
	}

	sink, err := g.sink(path)
	if err == nil {
		err = sink.Write(context.Background(), samples)
	}
	g.rec.IncExport(err == nil)
	if err != nil {
		g.log.Warn("Export failed", slog.String("path", path), logfields.Error(err))
	}
}

// WriteCoil switches a coil on a named device; value != 0 means on.
func (g *Gateway) WriteCoil(device string, address int, value int) bool {
	return g.write(cfg.ObjectCoil, device, address, value)
}

// WriteRegister writes a holding register on a named device.
func (g *Gateway) WriteRegister(device string, address int, value int) bool {
	return g.write(cfg.ObjectHoldingRegister, device, address, value)
}

func (g *Gateway) write(objectType, device string, address, value int) bool {
	if g.writer == nil {
		g.log.Warn("Write before setup", logfields.Device(device))
		return false
	}

	var err error
	if objectType == cfg.ObjectCoil {
		err = g.writer.WriteCoil(device, address, value)
	} else {
		err = g.writer.WriteRegister(device, address, value)
	}

	if tr := g.trackers[device]; tr != nil {
		tr.ObserveWrite(err)
	}
	g.rec.IncWrite(objectType, err == nil)

	attrs := []any{
		logfields.Device(device),
		logfields.ObjectType(objectType),
		logfields.Address(address),
		slog.Int("value", value),
	}
	if err != nil {
		g.log.Warn("Write failed", append(attrs, logfields.Error(err))...)
		return false
	}
	g.log.Info("Write succeeded", attrs...)
	return true
}

// Close releases sinks and device connections. It is safe before Setup
// and when called twice.
func (g *Gateway) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true

	var errs []error
	for path, s := range g.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("field: close export %s: %w", path, err))
		}
	}
	g.sinks = nil

	if g.connector != nil {
		if err := g.connector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("field: close connections: %w", err))
		}
	}
	g.log.Info("Field connections closed")
	return errors.Join(errs...)
}

// LastResults returns the most recent poll round.
func (g *Gateway) LastResults() []poller.PollResult { return g.last }

// jsonValue maps NaN and infinities, which JSON cannot carry, to null.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

func (g *Gateway) stamp(res poller.PollResult, timestamp *float64) time.Time {
	if timestamp != nil {
		return clock.Time(*timestamp)
	}
	return res.At
}

func (g *Gateway) sink(path string) (export.Sink, error) {
	if s, ok := g.sinks[path]; ok {
		return s, nil
	}
	s, err := export.Open(path)
	if err != nil {
		return nil, err
	}
	g.sinks[path] = s
	return s, nil
}

func (g *Gateway) published(kind, device string, err error) {
	g.rec.IncPublish(kind, err == nil)
	if err != nil {
		g.log.Warn("Publish failed",
			slog.String("kind", kind),
			logfields.Device(device),
			logfields.Error(err))
	}
}
