// Package series implements the get-or-create series dictionary (spec §3,
// §4.4 local path): the registry the local-pool dispatcher path consults
// to resolve a series name to a storage handle, inferring the value type
// from the first point it ever sees for that name.
package series

import (
	"sync"

	"siriinsert/internal/collab"
)

// entry is a series' registry-side record. Unlike the teacher's
// entry_pool.go, these are never recycled: a series, once created, stays
// in byName for the life of the registry, so there is no point at which
// an entry becomes free to hand back to a pool (a sync.Pool only pays off
// for short-lived, Put-able objects, and nothing here ever calls Put).
type entry struct {
	handle   collab.SeriesHandle
	inferred collab.ValueType
}

// HandleFactory creates a new opaque storage handle for a series; it is
// supplied by whatever concrete Storage implementation the registry is
// wired to (internal/storage, or a real shard engine in production).
type HandleFactory func(name []byte, inferred collab.ValueType) (collab.SeriesHandle, error)

// Registry implements collab.Registry with get-or-create semantics.
// Concurrent creation of the same name is serialized by mu.
type Registry struct {
	mu       sync.Mutex
	byName   map[string]*entry
	newEntry HandleFactory
}

// New builds a Registry that calls factory to mint a handle the first
// time a series name is seen.
func New(factory HandleFactory) *Registry {
	return &Registry{
		byName:   make(map[string]*entry),
		newEntry: factory,
	}
}

// GetOrCreate returns the existing handle for name, or creates one with
// inferred as its value type if name has never been seen before. The
// type is fixed at creation; later calls for the same name ignore a
// different inferred value (spec: "inference uses the first point's
// value type of a new series" — type conflicts on subsequent points are
// the storage collaborator's concern, out of scope here).
func (r *Registry) GetOrCreate(name []byte, inferred collab.ValueType) (collab.SeriesHandle, error) {
	key := string(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byName[key]; ok {
		return e.handle, nil
	}

	handle, err := r.newEntry(name, inferred)
	if err != nil {
		return nil, err
	}
	r.byName[key] = &entry{handle: handle, inferred: inferred}
	return handle, nil
}

// ValueTypeOf reports the inferred type for an already-created series,
// and whether it exists at all.
func (r *Registry) ValueTypeOf(name []byte) (collab.ValueType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byName[string(name)]
	if !ok {
		return collab.ValueTypeUnknown, false
	}
	return e.inferred, true
}

// Len reports the number of distinct series registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}
