package wire

import "fmt"

// Error is returned by the decoder on any structurally invalid input:
// truncated input, an unknown tag byte, or a close token with no matching
// open (spec §4.1: "the decoder fails with MALFORMED on truncated input,
// unknown tag, or nested-structure underflow").
type Error struct {
	Offset int
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("wire: malformed input at offset %d: %s", e.Offset, e.Reason)
}

func malformed(offset int, reason string) error {
	return &Error{Offset: offset, Reason: reason}
}
