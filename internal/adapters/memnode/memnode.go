// Package memnode is an in-process node store used for dry runs and tests.
package memnode

import (
	"context"
	"errors"
	"sync"

	"github.com/ghalamif/aegis-sensor/internal/ports"
)

// ErrClosed is returned when writing through a closed connection.
var ErrClosed = errors.New("memnode: connection closed")

// Store holds the current value of every node and, optionally, a bounded
// history of past writes per node.
type Store struct {
	mu           sync.Mutex
	values       map[string][]byte
	history      map[string][][]byte
	writes       map[string]int
	historyLimit int
}

// NewStore keeps up to historyLimit past values per node; 0 disables history.
func NewStore(historyLimit int) *Store {
	return &Store{
		values:       make(map[string][]byte),
		history:      make(map[string][][]byte),
		writes:       make(map[string]int),
		historyLimit: historyLimit,
	}
}

func (s *Store) write(node string, value []byte) {
	v := append([]byte(nil), value...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[node] = v
	s.writes[node]++
	if s.historyLimit > 0 {
		h := append(s.history[node], v)
		if len(h) > s.historyLimit {
			h = h[len(h)-s.historyLimit:]
		}
		s.history[node] = h
	}
}

// Value returns the current value of node.
func (s *Store) Value(node string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[node]
	return v, ok
}

// History returns the retained past values of node, oldest first.
func (s *Store) History(node string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.history[node]...)
}

// Writes returns the number of writes per node.
func (s *Store) Writes() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.writes))
	for k, v := range s.writes {
		out[k] = v
	}
	return out
}

// Transport connects to a Store.
type Transport struct {
	store *Store
}

func NewTransport(store *Store) *Transport {
	return &Transport{store: store}
}

func (t *Transport) Name() string { return "memory" }

func (t *Transport) Connect(ctx context.Context) (ports.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &connection{store: t.store}, nil
}

type connection struct {
	store  *Store
	mu     sync.Mutex
	closed bool
}

func (c *connection) WriteValue(_ context.Context, node string, value []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	c.store.write(node, value)
	return nil
}

func (c *connection) Close(context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

var _ ports.Transport = (*Transport)(nil)
