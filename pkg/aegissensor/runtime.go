package aegissensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ghalamif/aegis-sensor/internal/adapters/memnode"
	"github.com/ghalamif/aegis-sensor/internal/adapters/mqtt"
	"github.com/ghalamif/aegis-sensor/internal/adapters/observability"
	"github.com/ghalamif/aegis-sensor/internal/adapters/opcua"
	"github.com/ghalamif/aegis-sensor/internal/adapters/queue"
	"github.com/ghalamif/aegis-sensor/internal/adapters/sink"
	"github.com/ghalamif/aegis-sensor/internal/app/config"
	"github.com/ghalamif/aegis-sensor/internal/app/journal"
	"github.com/ghalamif/aegis-sensor/internal/app/publisher"
	"github.com/ghalamif/aegis-sensor/internal/ports"
	"github.com/ghalamif/aegis-sensor/internal/signer"
)

type (
	Transport  = ports.Transport
	Connection = ports.Connection
	Sink       = ports.Sink
	// PayloadSigner signs the 24-byte reading payload.
	PayloadSigner = publisher.PayloadSigner
)

// ErrConnectionLost must be wrapped by custom transports to force a reconnect.
var ErrConnectionLost = ports.ErrConnectionLost

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	transport  ports.Transport
	signer     publisher.PayloadSigner
	sink       ports.Sink
	logger     *zap.Logger
	registry   *prometheus.Registry
	passphrase []byte
	noMetrics  bool
}

// WithTransport replaces the transport selected by transport.kind.
func WithTransport(t Transport) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.transport = t
	}
}

// WithSigner replaces the key file in signing.key_path.
func WithSigner(s PayloadSigner) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.signer = s
	}
}

// WithSink enables the publish journal on a custom sink.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

func WithLogger(l *zap.Logger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = l
	}
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.registry = reg
	}
}

// WithPassphrase decrypts an encrypted private key.
func WithPassphrase(p []byte) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.passphrase = p
	}
}

// WithoutMetricsServer skips the /metrics listener.
func WithoutMetricsServer() RuntimeOption {
	return func(o *runtimeOverrides) {
		o.noMetrics = true
	}
}

// Runtime wires key → transport → publisher fleet → journal and owns their
// lifecycle.
type Runtime struct {
	cfg        *Config
	logger     *zap.Logger
	registry   *prometheus.Registry
	obs        ports.Observability
	transport  ports.Transport
	signer     publisher.PayloadSigner
	fleet      *publisher.Fleet
	queue      ports.RecordQueue
	sink       ports.Sink
	db         *sql.DB
	noMetrics  bool
	metricsSrv *http.Server
	metricsLn  net.Listener
}

// NewRuntime loads the signing key before anything else, so a missing or
// unreadable key fails here without a transport ever being built.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	sgn, err := buildSigner(cfg, overrides)
	if err != nil {
		return nil, err
	}
	closeSigner := func() {
		if c, ok := sgn.(interface{ Close() }); ok {
			c.Close()
		}
	}

	logger := overrides.logger
	if logger == nil {
		logger, err = observability.NewLogger(cfg.Logging)
		if err != nil {
			closeSigner()
			return nil, err
		}
	}

	reg := overrides.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	obs := observability.NewPromObs(reg, logger)

	tr := overrides.transport
	if tr == nil {
		tr, err = buildTransport(cfg)
		if err != nil {
			closeSigner()
			return nil, err
		}
	}

	rt := &Runtime{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		obs:       obs,
		transport: tr,
		signer:    sgn,
		noMetrics: overrides.noMetrics,
	}

	var j ports.Journal
	switch {
	case overrides.sink != nil:
		rt.sink = overrides.sink
	case cfg.Journal.Enabled():
		rt.db, err = sql.Open("postgres", cfg.Journal.ConnString)
		if err != nil {
			closeSigner()
			return nil, fmt.Errorf("open journal db: %w", err)
		}
		rt.sink = sink.NewTimescaleSink(rt.db, cfg.Journal.Table)
	}
	if rt.sink != nil {
		rt.queue = queue.NewMemQueue(cfg.Journal.Policy.MaxQueueLen)
		j = journal.NewRecorder(rt.queue, obs)
	}

	rt.fleet, err = publisher.NewFleet(publisher.FleetConfig{
		SensorIDs:        cfg.SensorIDs(),
		NodePrefix:       cfg.Sensors.NodePrefix,
		TimeUnit:         cfg.Schedule.TimeUnit,
		ReconnectBackoff: cfg.Schedule.ReconnectBackoff,
		WriteTimeout:     cfg.Schedule.WriteTimeout,
	}, tr, sgn, obs, j)
	if err != nil {
		closeSigner()
		if rt.db != nil {
			_ = rt.db.Close()
		}
		return nil, err
	}

	return rt, nil
}

func buildSigner(cfg *Config, o runtimeOverrides) (publisher.PayloadSigner, error) {
	if o.signer != nil {
		return o.signer, nil
	}
	if cfg.Signing.Disabled {
		return nil, nil
	}
	s, err := signer.Load(cfg.Signing.KeyPath, o.passphrase)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	return s, nil
}

func buildTransport(cfg *Config) (ports.Transport, error) {
	switch cfg.Transport.Kind {
	case config.KindOPCUA:
		return opcua.NewTransport(cfg.Transport.OPCUA)
	case config.KindMQTT:
		return mqtt.NewTransport(cfg.Transport.MQTT)
	case config.KindMemory:
		return memnode.NewTransport(memnode.NewStore(cfg.Transport.Memory.HistoryLimit)), nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}
}

// Registry exposes the metrics registry for embedding applications.
func (r *Runtime) Registry() *prometheus.Registry { return r.registry }

// Fleet returns the publisher fleet, mainly for inspecting loop states.
func (r *Runtime) Fleet() *publisher.Fleet { return r.fleet }

// Run publishes until ctx is cancelled, then drains the journal and releases
// every resource. The signer is closed once all loops have stopped.
func (r *Runtime) Run(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if err := r.startMetrics(); err != nil {
		_ = r.Shutdown(context.Background())
		return err
	}

	// the journal outlives ctx so records from the final iterations are flushed
	stopJournal := func() {}
	var journalDone chan struct{}
	if r.sink != nil {
		jctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		stopJournal = cancel
		if ts, ok := r.sink.(*sink.TimescaleSink); ok {
			if err := ts.EnsureTable(jctx); err != nil {
				r.obs.LogError("journal_table_setup_failed", err, ports.Field{Key: "table", Value: r.cfg.Journal.Table})
			}
		}
		journalDone = make(chan struct{})
		go func() {
			defer close(journalDone)
			journal.Run(jctx, r.queue, r.sink, r.cfg.Journal.Policy, r.obs)
		}()
	}

	r.fleet.Run(ctx)

	stopJournal()
	if journalDone != nil {
		<-journalDone
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the metrics server and closes the journal DB.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c, ok := r.signer.(interface{ Close() }); ok {
		c.Close()
	}
	_ = r.logger.Sync()

	return errors.Join(errs...)
}

// MetricsAddr returns the bound metrics address, or "" before Run.
func (r *Runtime) MetricsAddr() string {
	if r.metricsLn == nil {
		return ""
	}
	return r.metricsLn.Addr().String()
}

func (r *Runtime) startMetrics() error {
	if r.noMetrics {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ln, err := net.Listen("tcp", r.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	r.metricsLn = ln
	r.metricsSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := r.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogCritical("metrics_server_exited", err, ports.Field{Key: "addr", Value: ln.Addr().String()})
		}
	}()
	return nil
}
