// Package collab declares the five external collaborator interfaces named
// in spec §1/§6. internal/dispatch depends only on these, never on a
// concrete package, so a real clustered node can plug in its own storage
// engine, series dictionary, and transport without touching the core.
package collab

import "context"

// ValueType is the inferred type of a series' values, fixed for the life
// of the series (spec §3: "inference uses the first point's value type of
// a new series").
type ValueType int

const (
	ValueTypeUnknown ValueType = iota
	ValueTypeInteger
	ValueTypeFloat
	ValueTypeString
)

func (vt ValueType) String() string {
	switch vt {
	case ValueTypeInteger:
		return "integer"
	case ValueTypeFloat:
		return "float"
	case ValueTypeString:
		return "string"
	default:
		return "unknown"
	}
}

// SeriesHandle is an opaque storage handle a Registry hands back for a
// series name; only Storage understands what's inside it.
type SeriesHandle interface{}

// Router maps a series name to the pool that owns it (spec §4.3). It must
// be a total, deterministic function for any non-empty name.
type Router interface {
	PoolOf(seriesName []byte) uint16
}

// Registry implements get-or-create semantics for the series dictionary
// (spec §3, §4.4). Concurrent creation of the same name must be
// serialized by the implementation.
type Registry interface {
	GetOrCreate(name []byte, inferred ValueType) (SeriesHandle, error)
}

// Storage appends one point to a series (spec §4.4 local path).
type Storage interface {
	Append(handle SeriesHandle, timestampMs int64, value any) error
}

// Transport forwards a pool's sub-batch to its owning peer and reports the
// outcome (spec §4.4 remote path, §5 Backpressure).
type Transport interface {
	Send(ctx context.Context, poolID uint16, body []byte) error
}

// Clock abstracts wall-clock time for the dispatcher (spec §6:
// clock.now_ms()): its readings give the elapsed milliseconds reported for
// a timed-out pool. The timeout itself is a context deadline, not Clock.
type Clock interface {
	NowMs() int64
}
