package domain

import "strconv"

// Reading is one sensor measurement as it travels on the wire.
// Timestamp is milliseconds since the Unix epoch.
type Reading struct {
	SensorID    int32
	Temperature float32
	Pressure    float32
	Humidity    float32
	Timestamp   uint64
}

// NodeName derives the transport node a sensor publishes to.
func NodeName(prefix string, sensorID int32) string {
	return prefix + strconv.FormatInt(int64(sensorID), 10)
}
