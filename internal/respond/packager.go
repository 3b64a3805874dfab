// Package respond implements the response packager (spec §4.5): it
// turns a dispatch outcome into the single-key success_msg/error_msg
// wire reply body.
package respond

import (
	"fmt"
	"strings"

	"siriinsert/internal/dispatch"
	"siriinsert/internal/wire"
)

// Success builds the reply body for a fully successful insert: a
// one-entry map {"success_msg": "..."}.
func Success(pointCount int) []byte {
	enc := wire.NewEncoder(64)
	enc.OpenMap()
	enc.PushRawTerm([]byte("success_msg"))
	enc.PushRawTerm([]byte(fmt.Sprintf("Inserted %d point(s) successfully.", pointCount)))
	enc.CloseMap()
	return enc.Bytes()
}

// Failure builds the reply body for an insert with at least one pool
// failure: a one-entry map {"error_msg": "..."} summarizing every
// failed pool (spec §7 tier 2: dispatch errors are reported, not fatal
// to the whole process).
func Failure(failures []dispatch.PoolFailure) []byte {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("pool %d: %s", f.PoolID, f.Reason))
	}
	msg := fmt.Sprintf("insert failed for %d pool(s): %s", len(failures), strings.Join(parts, "; "))

	enc := wire.NewEncoder(128)
	enc.OpenMap()
	enc.PushRawTerm([]byte("error_msg"))
	enc.PushRawTerm([]byte(msg))
	enc.CloseMap()
	return enc.Bytes()
}

// Error builds a one-entry {"error_msg": msg} reply for a classification
// or protocol failure (spec §7 tiers 1 and 3), which unlike a dispatch
// PoolFailure has no per-pool breakdown to report.
func Error(msg string) []byte {
	enc := wire.NewEncoder(64 + len(msg))
	enc.OpenMap()
	enc.PushRawTerm([]byte("error_msg"))
	enc.PushRawTerm([]byte(msg))
	enc.CloseMap()
	return enc.Bytes()
}

// FromOutcome picks Success or Failure depending on whether outcome
// carries any pool failures.
func FromOutcome(outcome *dispatch.Outcome) []byte {
	if len(outcome.Failures) == 0 {
		return Success(outcome.TotalPoints)
	}
	return Failure(outcome.Failures)
}
