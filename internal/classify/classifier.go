// Package classify implements the batch classifier (spec §4.2): it walks
// a decoded client payload and produces one outbound sub-batch per pool,
// validating every point as it goes.
package classify

import (
	"siriinsert/internal/collab"
	"siriinsert/internal/wire"
)

// Limits bounds the accepted timestamp window (spec §3, §6: ts_min, ts_max).
type Limits struct {
	TsMin int64
	TsMax int64
}

// Result is what a successful classification produced: one encoder per
// pool that received at least one series, and the total point count
// across all of them.
type Result struct {
	Packers     map[uint16]*wire.Encoder
	TotalPoints int
}

// Classify consumes dec from its current position (expected to be the
// start of a client request body) and returns a Result, or the first
// error encountered. Per-pool encoders are allocated lazily — on first
// write to a pool — rather than pre-sized for every pool in the cluster
// (spec §9 design note).
//
// A repeated series name within one payload is not merged: each
// occurrence is routed and appended independently, so the owning pool's
// sub-batch ends up with two map entries for the same key. Deduplication,
// if ever wanted, is left to the storage collaborator (spec §4.2 edge
// cases, §9 Open Question (a)).
func Classify(dec *wire.Decoder, limits Limits, router collab.Router) (*Result, error) {
	var v wire.Value
	tok, err := dec.Next(&v)
	if err != nil {
		return nil, err
	}

	switch tok {
	case wire.TokenArrayOpen:
		// Reserved shape: accepted, produces no per-pool output.
		return &Result{Packers: map[uint16]*wire.Encoder{}}, nil

	case wire.TokenMapOpen:
		return classifyMap(dec, limits, router)

	default:
		return nil, fail(ErrExpectingMapOrArray, dec.Offset())
	}
}

func classifyMap(dec *wire.Decoder, limits Limits, router collab.Router) (*Result, error) {
	packers := make(map[uint16]*wire.Encoder)
	total := 0
	var v wire.Value

	for {
		tok, err := dec.Next(&v)
		if err != nil {
			return nil, err
		}
		if tok == wire.TokenMapClose {
			break
		}
		if tok != wire.TokenRaw && tok != wire.TokenRawTerm {
			return nil, fail(ErrExpectingSeriesNameAndPoints, dec.Offset())
		}
		// v.Raw borrows from dec's buffer; copy it because the name must
		// outlive further decode calls and be safe to use as a map key
		// and to write into more than one packer across repeats.
		name := append([]byte(nil), v.Raw...)

		n, err := classifySeries(dec, name, limits, router, packers)
		if err != nil {
			return nil, err
		}
		total += n
	}

	for _, enc := range packers {
		enc.CloseMap()
	}

	return &Result{Packers: packers, TotalPoints: total}, nil
}

func packerFor(packers map[uint16]*wire.Encoder, poolID uint16) *wire.Encoder {
	enc, ok := packers[poolID]
	if !ok {
		enc = wire.NewEncoder(256)
		enc.OpenMap()
		packers[poolID] = enc
	}
	return enc
}

func classifySeries(dec *wire.Decoder, name []byte, limits Limits, router collab.Router, packers map[uint16]*wire.Encoder) (int, error) {
	var v wire.Value

	tok, err := dec.Next(&v)
	if err != nil {
		return 0, err
	}
	if tok != wire.TokenArrayOpen {
		return 0, fail(ErrExpectingArrayOfPoints, dec.Offset())
	}

	poolID := router.PoolOf(name)
	packer := packerFor(packers, poolID)
	packer.PushRawTerm(name)
	packer.OpenArray()

	count := 0
	for {
		tok, err = dec.Next(&v)
		if err != nil {
			return 0, err
		}
		if tok == wire.TokenArrayClose {
			break
		}
		if tok != wire.TokenArray2 {
			if count == 0 {
				return 0, fail(ErrExpectingAtLeastOnePoint, dec.Offset())
			}
			return 0, fail(ErrExpectingArrayOfPoints, dec.Offset())
		}

		tsTok, err := dec.Next(&v)
		if err != nil {
			return 0, err
		}
		if tsTok != wire.TokenInt64 {
			return 0, fail(ErrExpectingIntegerTS, dec.Offset())
		}
		ts := v.Int64
		if ts < limits.TsMin || ts > limits.TsMax {
			return 0, fail(ErrTimestampOutOfRange, dec.Offset())
		}

		valTok, err := dec.Next(&v)
		if err != nil {
			return 0, err
		}

		packer.OpenArrayN(2)
		packer.PushInt(ts)
		switch valTok {
		case wire.TokenInt64:
			packer.PushInt(v.Int64)
		case wire.TokenDouble:
			packer.PushDouble(v.Double)
		case wire.TokenRaw, wire.TokenRawTerm:
			packer.PushRaw(v.Raw)
		default:
			return 0, fail(ErrUnsupportedValue, dec.Offset())
		}
		count++
	}

	if count == 0 {
		return 0, fail(ErrExpectingAtLeastOnePoint, dec.Offset())
	}

	packer.CloseArray()
	return count, nil
}
