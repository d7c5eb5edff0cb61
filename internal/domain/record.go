package domain

import "time"

// PublishStatus is the outcome of one publisher iteration.
type PublishStatus string

const (
	StatusPublished      PublishStatus = "published"
	StatusSignFailed     PublishStatus = "sign_failed"
	StatusWriteFailed    PublishStatus = "write_failed"
	StatusConnectionLost PublishStatus = "connection_lost"
)

// PublishRecord is the journal entry emitted for every iteration of a publisher loop.
type PublishRecord struct {
	SensorID       int32         `json:"sensor_id"`
	Node           string        `json:"node"`
	Seq            uint64        `json:"seq"`
	ReadingTime    time.Time     `json:"reading_ts"`
	FrameBytes     int           `json:"frame_bytes"`
	SignatureBytes int           `json:"signature_bytes"`
	Status         PublishStatus `json:"status"`
	Transport      string        `json:"transport"`
}
