package ports

import "github.com/ghalamif/aegis-sensor/internal/domain"

// RecordQueue buffers journal records between publishers and the sink.
// Enqueue must not block; a refused record is counted in Dropped.
type RecordQueue interface {
	Enqueue(r *domain.PublishRecord) bool
	DequeueBatch(max int) []*domain.PublishRecord
	Len() int
	Dropped() uint64
}
