package sink

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ghalamif/aegis-sensor/internal/domain"
)

func TestTimescaleSinkWriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "publish_journal")
	ts := time.UnixMilli(1000).UTC()

	records := []*domain.PublishRecord{
		{
			SensorID:       7,
			Node:           "ns=1;s=sensor-7",
			Seq:            1,
			ReadingTime:    ts,
			FrameBytes:     288,
			SignatureBytes: 256,
			Status:         domain.StatusPublished,
			Transport:      "opcua",
		},
		{
			SensorID:    8,
			Node:        "ns=1;s=sensor-8",
			Seq:         4,
			ReadingTime: ts,
			Status:      domain.StatusSignFailed,
			Transport:   "opcua",
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO publish_journal (sensor_id, node, seq, reading_ts, frame_bytes, signature_bytes, status, transport) VALUES ($1,$2,$3,$4,$5,$6,$7,$8),($9,$10,$11,$12,$13,$14,$15,$16) ON CONFLICT (sensor_id, reading_ts, seq) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs(
			int32(7), "ns=1;s=sensor-7", int64(1), ts, 288, 256, "published", "opcua",
			int32(8), "ns=1;s=sensor-8", int64(4), ts, 0, 0, "sign_failed", "opcua",
		).
		WillReturnResult(sqlmock.NewResult(2, 2))

	if err := sink.WriteBatch(context.Background(), records); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteBatchError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO publish_journal").WillReturnError(errors.New("db down"))

	sink := NewTimescaleSink(db, "publish_journal")
	err = sink.WriteBatch(context.Background(), []*domain.PublishRecord{{SensorID: 1}})
	if err == nil {
		t.Fatalf("expected error from failing exec")
	}
}

func TestTimescaleSinkWriteBatchNoRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "publish_journal")
	if err := sink.WriteBatch(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkEnsureTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS publish_journal")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewTimescaleSink(db, "publish_journal").EnsureTable(context.Background()); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "publish_journal")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}

func TestMaxBatchSizeFitsBindLimit(t *testing.T) {
	if MaxBatchSize*recordColumns > 65535 {
		t.Fatalf("max batch of %d rows needs %d parameters", MaxBatchSize, MaxBatchSize*recordColumns)
	}
	if (MaxBatchSize+1)*recordColumns <= 65535 {
		t.Fatalf("MaxBatchSize %d is not the largest fitting batch", MaxBatchSize)
	}
}
