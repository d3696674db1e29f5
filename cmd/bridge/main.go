// cmd/bridge/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tamzrod/modbus-bridge/internal/bridge"
	"github.com/tamzrod/modbus-bridge/internal/bus"
	"github.com/tamzrod/modbus-bridge/internal/clock"
	"github.com/tamzrod/modbus-bridge/internal/config"
	"github.com/tamzrod/modbus-bridge/internal/field"
	"github.com/tamzrod/modbus-bridge/internal/lifecycle"
	"github.com/tamzrod/modbus-bridge/internal/logging"
	"github.com/tamzrod/modbus-bridge/internal/metrics"
)

// idlePause bounds CPU use when an iteration has nothing to do.
const idlePause = 10 * time.Millisecond

type cli struct {
	Config          string  `short:"c" required:"" env:"MODPOLL_CONFIG" help:"Device configuration file (YAML)."`
	Rate            float64 `short:"r" default:"10" env:"MODPOLL_RATE" help:"Seconds between polls."`
	DiagnosticsRate float64 `default:"0" env:"MODPOLL_DIAGNOSTICS_RATE" help:"Seconds between diagnostics publishes, 0 disables."`

	BusHost     string `env:"MODPOLL_BUS_HOST" help:"Broker host; bus disabled when empty."`
	BusPort     int    `env:"MODPOLL_BUS_PORT" help:"Broker port (default 1883 for mqtt, 4222 for nats)."`
	BusKind     string `default:"mqtt" enum:"mqtt,nats" env:"MODPOLL_BUS_KIND" help:"Broker protocol: mqtt or nats."`
	BusUser     string `env:"MODPOLL_BUS_USER" help:"Broker user name."`
	BusPass     string `env:"MODPOLL_BUS_PASS" help:"Broker password."`
	BusQos      int    `default:"0" env:"MODPOLL_BUS_QOS" help:"MQTT QoS level."`
	TopicPrefix string `default:"modpoll/" env:"MODPOLL_TOPIC_PREFIX" help:"Prefix for every topic."`
	SingleTopic bool   `env:"MODPOLL_SINGLE_TOPIC" help:"Publish one message per reference."`

	Export      string  `env:"MODPOLL_EXPORT" help:"Export file; .db/.sqlite selects SQLite, anything else CSV."`
	Timestamp   bool    `env:"MODPOLL_TIMESTAMP" help:"Tag published and exported data with the poll tick time."`
	Once        bool    `env:"MODPOLL_ONCE" help:"Run a single iteration and exit."`
	Timeout     float64 `default:"1" env:"MODPOLL_TIMEOUT" help:"Modbus response timeout in seconds."`
	Delay       float64 `default:"0" env:"MODPOLL_DELAY" help:"Seconds to wait between devices."`
	Table       bool    `default:"true" negatable:"" env:"MODPOLL_TABLE" help:"Print polled values as a table."`
	MetricsAddr string  `env:"MODPOLL_METRICS_ADDR" help:"Serve /metrics and /healthz on this address."`

	LogLevel  string `default:"info" env:"MODPOLL_LOG_LEVEL" help:"debug, info, warn or error."`
	LogFormat string `default:"text" enum:"text,json" env:"MODPOLL_LOG_FORMAT" help:"text or json."`
}

func (c cli) options() config.Options {
	return config.Options{
		DevicesPath:         c.Config,
		PollInterval:        c.Rate,
		DiagnosticsInterval: c.DiagnosticsRate,
		BusHost:             c.BusHost,
		BusPort:             c.BusPort,
		BusKind:             c.BusKind,
		BusUser:             c.BusUser,
		BusPass:             c.BusPass,
		BusQoS:              qos(c.BusQos),
		TopicPrefix:         c.TopicPrefix,
		SingleTopic:         c.SingleTopic,
		ExportPath:          c.Export,
		Timestamp:           c.Timestamp,
		Once:                c.Once,
		Timeout:             seconds(c.Timeout),
		DeviceDelay:         seconds(c.Delay),
		PrintTable:          c.Table,
		MetricsAddr:         c.MetricsAddr,
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the whole process minus os.Exit: 1 when options, the device file
// or gateway setup fail, 0 otherwise.
func run(args []string) int {
	// A missing .env is fine.
	_ = godotenv.Load()

	var c cli
	parser, err := kong.New(&c,
		kong.Name("modbus-bridge"),
		kong.Description("Poll Modbus devices and bridge them to MQTT or NATS."),
		kong.UsageOnError(),
	)
	if err != nil {
		slog.Error("CLI setup failed", "error", err)
		return 1
	}
	if _, err := parser.Parse(args); err != nil {
		parser.Errorf("%s", err)
		return 1
	}

	log := logging.NewLogger(logging.ParseLevel(c.LogLevel), c.LogFormat)
	slog.SetDefault(log)

	opts := c.options()
	config.NormalizeOptions(&opts)
	if err := config.ValidateOptions(opts); err != nil {
		log.Error("Invalid options", "error", err)
		return 1
	}

	devices, err := config.Load(opts.DevicesPath)
	if err != nil {
		log.Error("Config load failed", "error", err)
		return 1
	}
	if err := config.Validate(devices); err != nil {
		log.Error("Config validation failed", "error", err)
		return 1
	}
	config.Normalize(devices)

	cancel := lifecycle.NewSignal()
	stop := lifecycle.InstallInterrupt(cancel, log)
	defer stop()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewRecorder(reg)

	if opts.MetricsAddr != "" {
		srv, err := metrics.Listen(opts.MetricsAddr, metrics.NewRouter(reg), log)
		if err != nil {
			log.Error("Metrics server failed", "error", err)
			return 1
		}
		defer func() {
			ctx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(ctx)
		}()
	}

	var (
		busGw bridge.BusGateway
		pub   field.Publisher
	)
	if opts.BusEnabled() {
		gw, err := bus.New(bus.FromOptions(opts), log)
		if err != nil {
			log.Error("Bus configuration failed", "error", err)
			return 1
		}
		busGw, pub = gw, gw
	}

	clk := clock.New(nil)
	fieldGw := field.New(devices.Devices, field.Options{
		TopicPrefix: opts.TopicPrefix,
		SingleTopic: opts.SingleTopic,
		DeviceDelay: opts.DeviceDelay,
		PrintTable:  opts.PrintTable,
		TableOut:    os.Stdout,
	}, field.NewModbusConnector(opts.Timeout), pub, clk, log, rec)

	loop := bridge.New(bridge.Options{
		PollInterval:        opts.PollInterval,
		DiagnosticsInterval: opts.DiagnosticsInterval,
		TopicPrefix:         opts.TopicPrefix,
		ExportPath:          opts.ExportPath,
		Timestamp:           opts.Timestamp,
		Once:                opts.Once,
		Idle:                idlePause,
	}, fieldGw, busGw, clk, cancel, log, rec)

	log.Info("modpoll bridge starting",
		"devices", len(devices.Devices),
		"rate", opts.PollInterval,
		"bus", opts.BusEnabled())
	if opts.ExportEnabled() {
		log.Info("Export enabled", "path", opts.ExportPath, "sqlite", opts.ExportIsSQLite())
	}

	if err := loop.Run(); err != nil {
		log.Error("Setup failed", "error", err)
		return 1
	}
	return 0
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func qos(v int) byte {
	if v < 0 || v > 2 {
		return 255
	}
	return byte(v)
}
