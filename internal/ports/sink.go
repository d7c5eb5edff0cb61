package ports

import (
	"context"

	"github.com/ghalamif/aegis-sensor/internal/domain"
)

type Sink interface {
	WriteBatch(ctx context.Context, records []*domain.PublishRecord) error
	Name() string
}

// Journal receives one record per publisher iteration. Record must not block.
type Journal interface {
	Record(r *domain.PublishRecord)
}
