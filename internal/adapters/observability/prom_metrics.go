package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/aegis-sensor/internal/ports"
)

const (
	FramesPublished   = "aegis_frames_published_total"
	SignFailures      = "aegis_sign_failures_total"
	WriteFailures     = "aegis_write_failures_total"
	ConnectFailures   = "aegis_connect_failures_total"
	Reconnects        = "aegis_reconnects_total"
	JournalWritten    = "aegis_journal_written_total"
	JournalDropped    = "aegis_journal_dropped_total"
	PublishersRunning = "aegis_publishers_running"
	JournalQueueLen   = "aegis_journal_queue_length"
	PublishLatency    = "aegis_publish_latency_seconds"
)

type PromObs struct {
	log      *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the publisher metrics on reg and logs through logger.
// A nil reg uses prometheus.DefaultRegisterer; a nil logger discards logs.
func NewPromObs(reg prometheus.Registerer, logger *zap.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	published := counter(FramesPublished, "Signed frames written to the transport.")
	signFail := counter(SignFailures, "Iterations skipped because signing failed.")
	writeFail := counter(WriteFailures, "Frames the transport refused or failed to write.")
	connectFail := counter(ConnectFailures, "Failed transport connection attempts.")
	reconnects := counter(Reconnects, "Connections re-established after a loss.")
	journalWritten := counter(JournalWritten, "Publish records persisted by the journal sink.")
	journalDropped := counter(JournalDropped, "Publish records dropped because the journal queue was full or the sink failed.")
	running := gauge(PublishersRunning, "Publisher loops currently alive.")
	queueLen := gauge(JournalQueueLen, "Publish records waiting in the journal queue.")
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    PublishLatency,
		Help:    "Time from reading generation to acknowledged transport write.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	reg.MustRegister(published, signFail, writeFail, connectFail, reconnects,
		journalWritten, journalDropped, running, queueLen, latency)

	return &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			FramesPublished: published,
			SignFailures:    signFail,
			WriteFailures:   writeFail,
			ConnectFailures: connectFail,
			Reconnects:      reconnects,
			JournalWritten:  journalWritten,
			JournalDropped:  journalDropped,
		},
		gauges: map[string]prometheus.Gauge{
			PublishersRunning: running,
			JournalQueueLen:   queueLen,
		},
		histos: map[string]prometheus.Observer{
			PublishLatency: latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.DPanic(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) AddGauge(name string, delta float64) {
	if g, ok := p.gauges[name]; ok {
		g.Add(delta)
	}
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
