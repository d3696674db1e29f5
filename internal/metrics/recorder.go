// internal/metrics/recorder.go
package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder implements the bridge's metric hooks using Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	pollDuration *prom.HistogramVec
	polls        *prom.CounterVec
	writes       *prom.CounterVec
	commands     *prom.CounterVec
	publishes    *prom.CounterVec
	exports      *prom.CounterVec
	diagnostics  prom.Counter
	lastPoll     prom.Gauge
}

// NewRecorder constructs and registers the collectors on reg.
func NewRecorder(reg prom.Registerer) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		pollDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "modpoll",
			Name:      "poll_duration_seconds",
			Help:      "Duration of one device poll cycle",
			Buckets:   prom.DefBuckets,
		}, []string{"device"}),
		polls: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "modpoll",
			Name:      "polls_total",
			Help:      "Device poll cycles by result",
		}, []string{"device", "result"}),
		writes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "modpoll",
			Name:      "writes_total",
			Help:      "Device writes by object type and result",
		}, []string{"object_type", "result"}),
		commands: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "modpoll",
			Name:      "commands_total",
			Help:      "Inbound bus commands by outcome",
		}, []string{"outcome"}),
		publishes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "modpoll",
			Name:      "publishes_total",
			Help:      "Bus publishes by kind and result",
		}, []string{"kind", "result"}),
		exports: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "modpoll",
			Name:      "exports_total",
			Help:      "Export sink writes by result",
		}, []string{"result"}),
		diagnostics: prom.NewCounter(prom.CounterOpts{
			Namespace: "modpoll",
			Name:      "diagnostics_runs_total",
			Help:      "Diagnostics publish runs",
		}),
		lastPoll: prom.NewGauge(prom.GaugeOpts{
			Namespace: "modpoll",
			Name:      "last_poll_timestamp_seconds",
			Help:      "Wall clock time of the last triggered poll",
		}),
	}
	reg.MustRegister(r.pollDuration, r.polls, r.writes, r.commands, r.publishes, r.exports, r.diagnostics, r.lastPoll)
	return r
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

func (r *Recorder) ObservePoll(device string, d time.Duration, ok bool) {
	if r == nil {
		return
	}
	r.pollDuration.WithLabelValues(device).Observe(d.Seconds())
	r.polls.WithLabelValues(device, result(ok)).Inc()
}

func (r *Recorder) IncWrite(objectType string, ok bool) {
	if r == nil {
		return
	}
	r.writes.WithLabelValues(objectType, result(ok)).Inc()
}

func (r *Recorder) IncCommand(outcome string) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(outcome).Inc()
}

func (r *Recorder) IncPublish(kind string, ok bool) {
	if r == nil {
		return
	}
	r.publishes.WithLabelValues(kind, result(ok)).Inc()
}

func (r *Recorder) IncExport(ok bool) {
	if r == nil {
		return
	}
	r.exports.WithLabelValues(result(ok)).Inc()
}

func (r *Recorder) IncDiagnostics() {
	if r == nil {
		return
	}
	r.diagnostics.Inc()
}

func (r *Recorder) SetLastPoll(epoch float64) {
	if r == nil {
		return
	}
	r.lastPoll.Set(epoch)
}
