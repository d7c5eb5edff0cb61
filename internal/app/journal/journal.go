// Package journal records the outcome of every publish iteration without
// slowing the publishers down.
package journal

import (
	"context"
	"time"

	"github.com/ghalamif/aegis-sensor/internal/adapters/observability"
	"github.com/ghalamif/aegis-sensor/internal/domain"
	"github.com/ghalamif/aegis-sensor/internal/ports"
)

// Recorder is the publisher-facing side of the journal. Record never blocks:
// when the queue is full the record is dropped and counted.
type Recorder struct {
	queue ports.RecordQueue
	obs   ports.Observability
}

func NewRecorder(q ports.RecordQueue, obs ports.Observability) *Recorder {
	return &Recorder{queue: q, obs: obs}
}

func (r *Recorder) Record(rec *domain.PublishRecord) {
	if rec == nil {
		return
	}
	if !r.queue.Enqueue(rec) {
		r.obs.IncCounter(observability.JournalDropped, 1)
	}
}

// Run drains q into sink in batches until ctx is cancelled, then flushes
// what is left with a bounded grace period.
func Run(ctx context.Context, q ports.RecordQueue, sink ports.Sink, pol ports.JournalPolicy, obs ports.Observability) {
	idle := pol.IdleSleep
	if idle <= 0 {
		idle = 50 * time.Millisecond
	}

	for {
		if drainOnce(ctx, q, sink, pol, obs) {
			continue
		}
		select {
		case <-ctx.Done():
			flush(q, sink, pol, obs)
			obs.LogInfo("journal_stopped",
				ports.Field{Key: "sink", Value: sink.Name()},
				ports.Field{Key: "queue_dropped", Value: q.Dropped()},
				ports.Field{Key: "unflushed", Value: q.Len()})
			return
		case <-time.After(idle):
		}
	}
}

// drainOnce writes one batch and reports whether anything was dequeued.
func drainOnce(ctx context.Context, q ports.RecordQueue, sink ports.Sink, pol ports.JournalPolicy, obs ports.Observability) bool {
	batch := q.DequeueBatch(pol.MaxBatchSize)
	obs.SetGauge(observability.JournalQueueLen, float64(q.Len()))
	if len(batch) == 0 {
		return false
	}

	if err := sink.WriteBatch(ctx, batch); err != nil {
		// no WAL behind the journal; a failed batch is lost
		obs.LogError("journal_write_failed", err,
			ports.Field{Key: "sink", Value: sink.Name()},
			ports.Field{Key: "records", Value: len(batch)})
		obs.IncCounter(observability.JournalDropped, float64(len(batch)))
		return true
	}
	obs.IncCounter(observability.JournalWritten, float64(len(batch)))
	return true
}

func flush(q ports.RecordQueue, sink ports.Sink, pol ports.JournalPolicy, obs ports.Observability) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for q.Len() > 0 && ctx.Err() == nil {
		drainOnce(ctx, q, sink, pol, obs)
	}
}

var _ ports.Journal = (*Recorder)(nil)
