package queue

import (
	"sync"

	"github.com/ghalamif/aegis-sensor/internal/domain"
	"github.com/ghalamif/aegis-sensor/internal/ports"
)

// MemQueue is a fixed-size ring of journal records. It never grows: when the
// ring is full new records are refused and counted, so a stalled sink costs
// memory bounded by the capacity and never slows a publisher down.
type MemQueue struct {
	mu      sync.Mutex
	ring    []*domain.PublishRecord
	head    int
	size    int
	dropped uint64
}

// NewMemQueue allocates the ring up front. A non-positive capacity yields a
// queue that refuses everything.
func NewMemQueue(capacity int) *MemQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &MemQueue{ring: make([]*domain.PublishRecord, capacity)}
}

func (q *MemQueue) Enqueue(r *domain.PublishRecord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == len(q.ring) {
		q.dropped++
		return false
	}
	q.ring[(q.head+q.size)%len(q.ring)] = r
	q.size++
	return true
}

// DequeueBatch removes up to max records in arrival order; max <= 0 drains all.
func (q *MemQueue) DequeueBatch(max int) []*domain.PublishRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return nil
	}
	n := q.size
	if max > 0 && max < n {
		n = max
	}
	out := make([]*domain.PublishRecord, n)
	for i := range out {
		idx := (q.head + i) % len(q.ring)
		out[i] = q.ring[idx]
		q.ring[idx] = nil
	}
	q.head = (q.head + n) % len(q.ring)
	q.size -= n
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Dropped returns how many records Enqueue has refused since creation.
func (q *MemQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

var _ ports.RecordQueue = (*MemQueue)(nil)
