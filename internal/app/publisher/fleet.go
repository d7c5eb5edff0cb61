package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/aegis-sensor/internal/domain"
	"github.com/ghalamif/aegis-sensor/internal/ports"
	"github.com/ghalamif/aegis-sensor/internal/simulator"
)

var (
	ErrNoSensors       = errors.New("publisher: no sensors configured")
	ErrDuplicateSensor = errors.New("publisher: duplicate sensor id")
)

type FleetConfig struct {
	SensorIDs        []int32
	NodePrefix       string
	TimeUnit         time.Duration
	ReconnectBackoff time.Duration
	WriteTimeout     time.Duration
}

// Fleet runs one Loop per sensor over a shared transport and signer.
type Fleet struct {
	loops  []*Loop
	signer PayloadSigner
	obs    ports.Observability
}

// NewFleet builds the loops. simOpts are applied to every simulator after the
// time unit, so they must not share state between sensors.
func NewFleet(cfg FleetConfig, t ports.Transport, s PayloadSigner, obs ports.Observability, j ports.Journal, simOpts ...simulator.Option) (*Fleet, error) {
	if len(cfg.SensorIDs) == 0 {
		return nil, ErrNoSensors
	}
	seen := make(map[int32]bool, len(cfg.SensorIDs))
	f := &Fleet{signer: s, obs: obs}
	for _, id := range cfg.SensorIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateSensor, id)
		}
		seen[id] = true

		opts := append([]simulator.Option{simulator.WithTimeUnit(cfg.TimeUnit)}, simOpts...)
		loop := NewLoop(LoopConfig{
			SensorID:         id,
			Node:             domain.NodeName(cfg.NodePrefix, id),
			ReconnectBackoff: cfg.ReconnectBackoff,
			WriteTimeout:     cfg.WriteTimeout,
		}, t, s, simulator.New(id, opts...), obs, j)
		f.loops = append(f.loops, loop)
	}
	return f, nil
}

func (f *Fleet) Loops() []*Loop { return f.loops }

// Run blocks until ctx is cancelled and every loop has stopped, then closes
// the signer if it holds key material.
func (f *Fleet) Run(ctx context.Context) {
	f.obs.LogInfo("fleet_starting", ports.Field{Key: "sensors", Value: len(f.loops)})

	var wg sync.WaitGroup
	for _, l := range f.loops {
		wg.Add(1)
		go func(l *Loop) {
			defer wg.Done()
			l.Run(ctx)
		}(l)
	}
	wg.Wait()

	if c, ok := f.signer.(interface{ Close() }); ok {
		c.Close()
	}
	f.obs.LogInfo("fleet_stopped")
}
