package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/aegis-sensor/internal/adapters/observability"
	"github.com/ghalamif/aegis-sensor/internal/adapters/queue"
	"github.com/ghalamif/aegis-sensor/internal/domain"
	"github.com/ghalamif/aegis-sensor/internal/ports"
)

func TestRecorderDropsWhenFull(t *testing.T) {
	obs := &mockObs{}
	q := queue.NewMemQueue(1)
	rec := NewRecorder(q, obs)

	rec.Record(&domain.PublishRecord{SensorID: 1})
	rec.Record(&domain.PublishRecord{SensorID: 2})
	rec.Record(nil)

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, 1.0, obs.counter(observability.JournalDropped))
}

func TestRunBatchesAndFlushesOnStop(t *testing.T) {
	obs := &mockObs{}
	q := queue.NewMemQueue(100)
	for i := 0; i < 10; i++ {
		require.True(t, q.Enqueue(&domain.PublishRecord{SensorID: 1, Seq: uint64(i + 1)}))
	}
	sink := &mockSink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, q, sink, ports.JournalPolicy{MaxBatchSize: 4, IdleSleep: time.Millisecond}, obs)
		close(done)
	}()

	require.Eventually(t, func() bool { return sink.total() == 10 }, time.Second, time.Millisecond)

	require.True(t, q.Enqueue(&domain.PublishRecord{SensorID: 2, Seq: 1}))
	cancel()
	<-done

	assert.Equal(t, 11, sink.total())
	for _, size := range sink.batchSizes() {
		assert.LessOrEqual(t, size, 4)
	}
	assert.Equal(t, 11.0, obs.counter(observability.JournalWritten))
	assert.Equal(t, []string{"journal_stopped"}, obs.infoMessages())
}

func TestRunCountsFailedBatches(t *testing.T) {
	obs := &mockObs{}
	q := queue.NewMemQueue(10)
	q.Enqueue(&domain.PublishRecord{SensorID: 1})
	q.Enqueue(&domain.PublishRecord{SensorID: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	Run(ctx, q, &mockSink{err: errors.New("db down")}, ports.JournalPolicy{MaxBatchSize: 10}, obs)

	assert.Equal(t, 2.0, obs.counter(observability.JournalDropped))
	assert.Len(t, obs.errors, 1)
	assert.Zero(t, q.Len())
}

type mockSink struct {
	mu      sync.Mutex
	batches [][]*domain.PublishRecord
	err     error
}

func (m *mockSink) WriteBatch(_ context.Context, records []*domain.PublishRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, records)
	return nil
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func (m *mockSink) batchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, len(b))
	}
	return out
}

type mockObs struct {
	mu       sync.Mutex
	counters map[string]float64
	errors   []error
	infos    []string
}

func (m *mockObs) LogInfo(msg string, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockObs) infoMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.infos...)
}
func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
}
func (m *mockObs) LogCritical(string, error, ...ports.Field) {}
func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]float64)
	}
	m.counters[name] += v
}
func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(string, float64)       {}
func (m *mockObs) AddGauge(string, float64)       {}

func (m *mockObs) counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}
