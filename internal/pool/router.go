// Package pool implements the pool router (spec §4.3): a pure, total
// function mapping a series name to the pool that owns it, using a
// hashing scheme that stays stable as pool_count changes.
package pool

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	rendezvous "github.com/dgryski/go-rendezvous"
)

// Router is immutable once built: PoolOf never mutates state, so a single
// Router is safe for concurrent use without locking.
type Router struct {
	poolCount int
	rdv       *rendezvous.Rendezvous
}

// New builds a router over poolCount pools, numbered 0..poolCount-1.
func New(poolCount int) *Router {
	if poolCount < 1 {
		poolCount = 1
	}
	return &Router{
		poolCount: poolCount,
		rdv:       rendezvous.New(nodeNames(poolCount), hashNode),
	}
}

func nodeNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}

func hashNode(s string) uint64 {
	return xxhash.Sum64String(s)
}

// PoolOf returns the pool owning seriesName. It never fails for a
// non-empty name; the classifier rejects empty names before routing.
func (r *Router) PoolOf(seriesName []byte) uint16 {
	node := r.rdv.Lookup(string(seriesName))
	id, err := strconv.Atoi(node)
	if err != nil {
		// Unreachable: every node name comes from nodeNames, which only
		// ever emits decimal integers.
		return 0
	}
	return uint16(id)
}

// PoolCount reports the number of pools this router was built over.
func (r *Router) PoolCount() int { return r.poolCount }

// WithPools returns a new Router sized for n pools. Rendezvous hashing
// guarantees only the minimal set of series remaps when n changes,
// unlike a plain hash % pool_count scheme, which remaps almost
// everything on any pool_count change.
func (r *Router) WithPools(n int) *Router {
	return New(n)
}
