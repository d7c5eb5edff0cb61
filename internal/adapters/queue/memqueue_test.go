package queue

import (
	"testing"

	"github.com/ghalamif/aegis-sensor/internal/domain"
)

func TestMemQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewMemQueue(4)

	r1 := &domain.PublishRecord{SensorID: 1, Seq: 1}
	r2 := &domain.PublishRecord{SensorID: 2, Seq: 1}

	if !q.Enqueue(r1) || !q.Enqueue(r2) {
		t.Fatalf("expected successful enqueue")
	}

	batch := q.DequeueBatch(1)
	if len(batch) != 1 || batch[0].SensorID != 1 {
		t.Fatalf("unexpected first batch: %+v", batch)
	}

	remaining := q.DequeueBatch(10)
	if len(remaining) != 1 || remaining[0].SensorID != 2 {
		t.Fatalf("unexpected second batch: %+v", remaining)
	}

	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
	if got := q.DequeueBatch(5); got != nil {
		t.Fatalf("expected nil batch from empty queue, got %+v", got)
	}
}

func TestMemQueueCapacity(t *testing.T) {
	q := NewMemQueue(2)

	rec := &domain.PublishRecord{SensorID: 9}

	if !q.Enqueue(rec) || !q.Enqueue(rec) {
		t.Fatalf("expected enqueue within capacity")
	}
	if q.Enqueue(rec) {
		t.Fatalf("enqueue should fail when capacity exceeded")
	}

	q.DequeueBatch(1)
	if !q.Enqueue(rec) {
		t.Fatalf("expected enqueue to succeed after dequeue")
	}
	if q.Dropped() != 1 {
		t.Fatalf("expected 1 dropped record, got %d", q.Dropped())
	}
}

func TestMemQueueWrapsAround(t *testing.T) {
	q := NewMemQueue(3)

	var seq uint64
	next := func() *domain.PublishRecord {
		seq++
		return &domain.PublishRecord{SensorID: 1, Seq: seq}
	}

	var got []uint64
	for round := 0; round < 5; round++ {
		if !q.Enqueue(next()) || !q.Enqueue(next()) {
			t.Fatalf("round %d: expected enqueue to succeed", round)
		}
		for _, r := range q.DequeueBatch(0) {
			got = append(got, r.Seq)
		}
	}

	if len(got) != 10 {
		t.Fatalf("expected 10 records, got %d", len(got))
	}
	for i, s := range got {
		if s != uint64(i+1) {
			t.Fatalf("records out of order at %d: %v", i, got)
		}
	}
	if q.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", q.Dropped())
	}
}

func TestMemQueueNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		q := NewMemQueue(capacity)
		if q.Enqueue(&domain.PublishRecord{}) {
			t.Fatalf("capacity %d: enqueue should be refused", capacity)
		}
		if q.Len() != 0 || q.DequeueBatch(1) != nil {
			t.Fatalf("capacity %d: queue should stay empty", capacity)
		}
		if q.Dropped() != 1 {
			t.Fatalf("capacity %d: expected 1 dropped record, got %d", capacity, q.Dropped())
		}
	}
}
