package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ghalamif/aegis-sensor/internal/domain"
	"github.com/ghalamif/aegis-sensor/internal/ports"
)

const (
	recordColumns = 8
	// PostgreSQL caps a statement at 65535 bind parameters.
	maxBindParams = 65535

	// MaxBatchSize is the largest record batch one WriteBatch can insert.
	MaxBatchSize = maxBindParams / recordColumns
)

// TimescaleSink appends publish records to a PostgreSQL/TimescaleDB table.
type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

// EnsureTable creates the journal table when it does not exist.
func (t *TimescaleSink) EnsureTable(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+t.tableName+` (
	sensor_id INTEGER NOT NULL,
	node TEXT NOT NULL,
	seq BIGINT NOT NULL,
	reading_ts TIMESTAMPTZ NOT NULL,
	frame_bytes INTEGER NOT NULL,
	signature_bytes INTEGER NOT NULL,
	status TEXT NOT NULL,
	transport TEXT NOT NULL,
	PRIMARY KEY (sensor_id, reading_ts, seq)
)`)
	return err
}

func (t *TimescaleSink) WriteBatch(ctx context.Context, records []*domain.PublishRecord) error {
	if len(records) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (sensor_id, node, seq, reading_ts, frame_bytes, signature_bytes, status, transport) VALUES ")

	args := make([]any, 0, len(records)*recordColumns)
	for i, r := range records {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for c := 1; c <= recordColumns; c++ {
			if c > 1 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", len(args)+c)
		}
		b.WriteString(")")

		args = append(args,
			r.SensorID,
			r.Node,
			int64(r.Seq),
			r.ReadingTime,
			r.FrameBytes,
			r.SignatureBytes,
			string(r.Status),
			r.Transport,
		)
	}

	b.WriteString(" ON CONFLICT (sensor_id, reading_ts, seq) DO NOTHING")

	_, err := t.db.ExecContext(ctx, b.String(), args...)
	return err
}

var _ ports.Sink = (*TimescaleSink)(nil)
