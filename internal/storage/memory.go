// Package storage provides an in-memory stand-in for the on-disk shard
// storage engine, which spec §1 explicitly treats as an external
// collaborator out of scope for this module. It exists so the insert
// pipeline can be exercised and tested end to end without a real engine.
package storage

import (
	"fmt"
	"sync"

	"siriinsert/internal/collab"
)

// Point is one appended (timestamp, value) pair.
type Point struct {
	TimestampMs int64
	Value       any
}

type handle struct {
	name string
}

// Store is a mutex-guarded map of series name to its accumulated points.
type Store struct {
	mu     sync.Mutex
	series map[string][]Point
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{series: make(map[string][]Point)}
}

// NewHandle mints a handle bound to name, suitable as a series.HandleFactory.
func (s *Store) NewHandle(name []byte, _ collab.ValueType) (collab.SeriesHandle, error) {
	return &handle{name: string(name)}, nil
}

// Append implements collab.Storage.
func (s *Store) Append(h collab.SeriesHandle, timestampMs int64, value any) error {
	hh, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("storage: unrecognized handle type %T", h)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[hh.name] = append(s.series[hh.name], Point{TimestampMs: timestampMs, Value: value})
	return nil
}

// Points returns a copy of the points appended to name, in append order.
func (s *Store) Points(name string) []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.series[name]
	out := make([]Point, len(src))
	copy(out, src)
	return out
}

// SeriesCount reports how many distinct series have at least one point.
func (s *Store) SeriesCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.series)
}
