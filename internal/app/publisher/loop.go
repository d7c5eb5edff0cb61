// Package publisher runs the per-sensor publish loops.
package publisher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ghalamif/aegis-sensor/internal/adapters/observability"
	"github.com/ghalamif/aegis-sensor/internal/domain"
	"github.com/ghalamif/aegis-sensor/internal/frame"
	"github.com/ghalamif/aegis-sensor/internal/ports"
	"github.com/ghalamif/aegis-sensor/internal/simulator"
)

// State is the lifecycle phase of a Loop.
type State int32

const (
	Connecting State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PayloadSigner signs encoded payloads. A nil PayloadSigner publishes
// unsigned frames with a zero-length signature.
type PayloadSigner interface {
	Sign(payload []byte) ([]byte, error)
}

type LoopConfig struct {
	SensorID         int32
	Node             string
	ReconnectBackoff time.Duration
	WriteTimeout     time.Duration
}

func (c *LoopConfig) applyDefaults() {
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
}

// Loop publishes the readings of one simulated sensor to one node.
type Loop struct {
	cfg       LoopConfig
	transport ports.Transport
	signer    PayloadSigner
	sim       *simulator.Simulator
	obs       ports.Observability
	journal   ports.Journal

	state atomic.Int32
	seq   uint64
}

// NewLoop wires a loop. journal may be nil.
func NewLoop(cfg LoopConfig, t ports.Transport, s PayloadSigner, sim *simulator.Simulator, obs ports.Observability, j ports.Journal) *Loop {
	cfg.applyDefaults()
	l := &Loop{
		cfg:       cfg,
		transport: t,
		signer:    s,
		sim:       sim,
		obs:       obs,
		journal:   j,
	}
	l.state.Store(int32(Connecting))
	return l
}

func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) Node() string { return l.cfg.Node }

func (l *Loop) setState(s State) { l.state.Store(int32(s)) }

// Run blocks until ctx is cancelled. A write already in flight when that
// happens is allowed to finish within the write timeout.
func (l *Loop) Run(ctx context.Context) {
	l.obs.AddGauge(observability.PublishersRunning, 1)
	defer l.obs.AddGauge(observability.PublishersRunning, -1)

	for {
		l.setState(Connecting)
		conn := l.connect(ctx)
		if conn == nil {
			l.setState(Stopped)
			l.obs.LogInfo("publisher_stopped", l.fields()...)
			return
		}

		l.setState(Running)
		l.obs.LogInfo("publisher_connected", append(l.fields(), ports.Field{Key: "transport", Value: l.transport.Name()})...)

		if l.publish(ctx, conn) {
			l.closeConn(ctx, conn)
			l.obs.IncCounter(observability.Reconnects, 1)
			continue
		}

		l.setState(Stopping)
		l.closeConn(ctx, conn)
		l.setState(Stopped)
		l.obs.LogInfo("publisher_stopped", l.fields()...)
		return
	}
}

// connect retries until it succeeds or ctx ends; nil means stop.
func (l *Loop) connect(ctx context.Context) ports.Connection {
	for ctx.Err() == nil {
		conn, err := l.transport.Connect(ctx)
		if err == nil {
			return conn
		}
		if ctx.Err() != nil {
			return nil
		}
		l.obs.IncCounter(observability.ConnectFailures, 1)
		l.obs.LogError("connect_failed", err, l.fields()...)
		if !sleep(ctx, l.cfg.ReconnectBackoff) {
			return nil
		}
	}
	return nil
}

// publish runs iterations until ctx ends (false) or the connection is lost (true).
func (l *Loop) publish(ctx context.Context, conn ports.Connection) bool {
	for ctx.Err() == nil {
		if l.iterate(ctx, conn) {
			return true
		}
		if !sleep(ctx, l.sim.NextInterval()) {
			return false
		}
	}
	return false
}

// iterate publishes one reading and reports whether the connection was lost.
func (l *Loop) iterate(ctx context.Context, conn ports.Connection) bool {
	start := time.Now()
	reading := l.sim.NextReading()
	l.seq++
	rec := &domain.PublishRecord{
		SensorID:    reading.SensorID,
		Node:        l.cfg.Node,
		Seq:         l.seq,
		ReadingTime: time.UnixMilli(int64(reading.Timestamp)).UTC(),
		Transport:   l.transport.Name(),
	}
	defer l.record(rec)

	payload := frame.Encode(reading)
	var sig []byte
	if l.signer != nil {
		var err error
		sig, err = l.signer.Sign(payload)
		if err != nil {
			rec.Status = domain.StatusSignFailed
			l.obs.IncCounter(observability.SignFailures, 1)
			l.obs.LogError("sign_failed", err, l.fields()...)
			return false
		}
	}
	f := frame.Assemble(payload, sig)
	rec.FrameBytes = len(f)
	rec.SignatureBytes = len(sig)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.WriteTimeout)
	err := conn.WriteValue(wctx, l.cfg.Node, f)
	cancel()

	switch {
	case err == nil:
		rec.Status = domain.StatusPublished
		l.obs.IncCounter(observability.FramesPublished, 1)
		l.obs.ObserveLatency(observability.PublishLatency, time.Since(start).Seconds())
		return false
	case errors.Is(err, ports.ErrConnectionLost):
		rec.Status = domain.StatusConnectionLost
		l.obs.IncCounter(observability.WriteFailures, 1)
		l.obs.LogError("connection_lost", err, l.fields()...)
		return true
	default:
		rec.Status = domain.StatusWriteFailed
		l.obs.IncCounter(observability.WriteFailures, 1)
		l.obs.LogError("write_failed", err, append(l.fields(), ports.Field{Key: "seq", Value: rec.Seq})...)
		return false
	}
}

func (l *Loop) record(rec *domain.PublishRecord) {
	if l.journal != nil {
		l.journal.Record(rec)
	}
}

func (l *Loop) closeConn(ctx context.Context, conn ports.Connection) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.WriteTimeout)
	defer cancel()
	if err := conn.Close(cctx); err != nil {
		l.obs.LogError("close_failed", err, l.fields()...)
	}
}

func (l *Loop) fields() []ports.Field {
	return []ports.Field{
		{Key: "sensor", Value: l.cfg.SensorID},
		{Key: "node", Value: l.cfg.Node},
	}
}

// sleep waits d or until ctx ends, and reports whether the loop should go on.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
