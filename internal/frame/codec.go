// Package frame implements the signed telemetry wire format.
//
// Every multi-byte field is little-endian. A payload is the fixed 24-byte
// encoding of a reading:
//
//	[0:4]   sensor id    int32
//	[4:8]   temperature  float32
//	[8:12]  pressure     float32
//	[12:16] humidity     float32
//	[16:24] timestamp    uint64 (ms since Unix epoch)
//
// A signed frame appends the signature length and the signature:
//
//	[0:24]      payload
//	[24:32]     signature length uint64
//	[32:32+n]   signature
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ghalamif/aegis-sensor/internal/domain"
)

const (
	// PayloadSize is the encoded size of a reading.
	PayloadSize = 24
	// LengthFieldSize is the size of the signature length field.
	LengthFieldSize = 8
	// HeaderSize is the number of bytes preceding the signature.
	HeaderSize = PayloadSize + LengthFieldSize
)

var order = binary.LittleEndian

// ErrTooShort is returned by Decode when fewer than PayloadSize bytes are given.
var ErrTooShort = errors.New("frame: payload too short")

// Encode writes r field by field into a new PayloadSize buffer.
func Encode(r domain.Reading) []byte {
	b := make([]byte, PayloadSize)
	order.PutUint32(b[0:4], uint32(r.SensorID))
	order.PutUint32(b[4:8], math.Float32bits(r.Temperature))
	order.PutUint32(b[8:12], math.Float32bits(r.Pressure))
	order.PutUint32(b[12:16], math.Float32bits(r.Humidity))
	order.PutUint64(b[16:24], r.Timestamp)
	return b
}

// Decode parses the first PayloadSize bytes of b.
func Decode(b []byte) (domain.Reading, error) {
	if len(b) < PayloadSize {
		return domain.Reading{}, fmt.Errorf("%w: got %d bytes, need %d", ErrTooShort, len(b), PayloadSize)
	}
	return domain.Reading{
		SensorID:    int32(order.Uint32(b[0:4])),
		Temperature: math.Float32frombits(order.Uint32(b[4:8])),
		Pressure:    math.Float32frombits(order.Uint32(b[8:12])),
		Humidity:    math.Float32frombits(order.Uint32(b[12:16])),
		Timestamp:   order.Uint64(b[16:24]),
	}, nil
}
