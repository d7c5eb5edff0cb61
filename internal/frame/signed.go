package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooShort means the frame ends before the payload and length field.
	ErrPayloadTooShort = errors.New("frame: payload too short")
	// ErrTruncated means the declared signature length runs past the end of the frame.
	ErrTruncated = errors.New("frame: truncated signature")
	// ErrTrailingBytes means bytes follow the declared signature.
	ErrTrailingBytes = errors.New("frame: trailing bytes after signature")
)

// Assemble concatenates payload, the signature length and the signature into
// an exactly sized buffer. An empty signature yields an unsigned frame.
func Assemble(payload, signature []byte) []byte {
	out := make([]byte, len(payload)+LengthFieldSize+len(signature))
	n := copy(out, payload)
	order.PutUint64(out[n:n+LengthFieldSize], uint64(len(signature)))
	copy(out[n+LengthFieldSize:], signature)
	return out
}

// Split is the inverse of Assemble for frames carrying a PayloadSize payload.
// The returned slices alias f.
func Split(f []byte) (payload, signature []byte, err error) {
	if len(f) < HeaderSize {
		return nil, nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrPayloadTooShort, len(f), HeaderSize)
	}
	sigLen := order.Uint64(f[PayloadSize:HeaderSize])
	rest := uint64(len(f) - HeaderSize)
	if sigLen > rest {
		return nil, nil, fmt.Errorf("%w: declared %d bytes, %d present", ErrTruncated, sigLen, rest)
	}
	if sigLen < rest {
		return nil, nil, fmt.Errorf("%w: %d extra", ErrTrailingBytes, rest-sigLen)
	}
	return f[:PayloadSize], f[HeaderSize:], nil
}
