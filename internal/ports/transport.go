package ports

import (
	"context"
	"errors"
)

// ErrConnectionLost is wrapped by Connection.WriteValue when the session is
// gone and the caller has to reconnect. Other write errors are transient.
var ErrConnectionLost = errors.New("transport: connection lost")

// Transport opens connections to a node-addressed data space where each node
// holds a single current value.
type Transport interface {
	Connect(ctx context.Context) (Connection, error)
	Name() string
}

// Connection writes current values to named nodes.
type Connection interface {
	WriteValue(ctx context.Context, node string, value []byte) error
	Close(ctx context.Context) error
}
