// Package wire implements the streaming binary codec used to carry insert
// payloads between clients, pools, and replies (spec §4.1).
//
// The format is type-tagged: every value in the stream is preceded by a
// one-byte token identifying what follows. The decoder is a pull parser —
// each call to Next advances exactly one token and, for scalar tokens,
// fills the caller-provided Value. It never allocates for scalars; RAW
// payloads are returned as sub-slices of the decoder's input buffer and
// stay valid exactly as long as that buffer does.
package wire

// Token identifies the kind of value that follows in the stream.
type Token byte

const (
	// TokenInt64 is followed by a signed 64-bit big-endian integer.
	TokenInt64 Token = iota + 1
	// TokenDouble is followed by an IEEE-754 64-bit float, big-endian.
	TokenDouble
	// TokenRaw is followed by a packed length then that many raw bytes.
	TokenRaw
	// TokenRawTerm is followed by raw bytes terminated by a 0x00 byte.
	// Used for map keys (series names) where the writer does not want to
	// compute a length up front. The bytes themselves must not contain 0x00.
	TokenRawTerm
	// TokenArray1..TokenArray5 are fixed-arity array headers with no payload.
	TokenArray1
	TokenArray2
	TokenArray3
	TokenArray4
	TokenArray5
	// TokenArrayOpen/TokenArrayClose bracket a variable-length array.
	TokenArrayOpen
	TokenArrayClose
	// TokenMapOpen/TokenMapClose bracket a variable-length map.
	TokenMapOpen
	TokenMapClose
	// TokenEnd terminates the stream.
	TokenEnd
)

// arity returns the fixed arity encoded by TokenArray1..TokenArray5, or 0
// for any other token.
func (t Token) arity() int {
	if t >= TokenArray1 && t <= TokenArray5 {
		return int(t-TokenArray1) + 1
	}
	return 0
}

// ArrayToken returns the fixed-arity token for n in 1..5, or TokenArrayOpen
// for any other n (the caller should then emit the matching elements and a
// TokenArrayClose).
func ArrayToken(n int) Token {
	if n >= 1 && n <= 5 {
		return TokenArray1 + Token(n-1)
	}
	return TokenArrayOpen
}

// Value carries the scalar payload decoded by a Next call. Only the field
// matching the returned Token is meaningful.
type Value struct {
	Int64  int64
	Double float64
	Raw    []byte
}
