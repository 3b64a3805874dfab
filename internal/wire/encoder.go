package wire

import "math"

// Encoder appends tokens to a growable buffer. It never inspects the
// contents it is given — validation is the classifier's job (spec §4.1).
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty encoder with cap pre-reserved.
func NewEncoder(cap int) *Encoder {
	return &Encoder{buf: make([]byte, 0, cap)}
}

// Bytes returns the encoded buffer. The slice is owned by the encoder and
// must not be mutated by the caller after further writes.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len reports the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

// Reset clears the buffer for reuse without releasing its backing array.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

func (e *Encoder) putBE32(n uint32) {
	e.buf = append(e.buf, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func (e *Encoder) putBE64(n uint64) {
	e.buf = append(e.buf,
		byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
		byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func (e *Encoder) putPackedLen(n uint64) {
	switch {
	case n < 64:
		e.buf = append(e.buf, byte(n))
	case n < 16384:
		e.buf = append(e.buf, byte(0x40|(n>>8)), byte(n))
	case n <= math.MaxUint32:
		e.buf = append(e.buf, 0x80)
		e.putBE32(uint32(n))
	default:
		e.buf = append(e.buf, 0x81)
		e.putBE64(n)
	}
}

// PushInt writes an INT64 token and value.
func (e *Encoder) PushInt(v int64) {
	e.buf = append(e.buf, byte(TokenInt64))
	e.putBE64(uint64(v))
}

// PushDouble writes a DOUBLE token and value.
func (e *Encoder) PushDouble(v float64) {
	e.buf = append(e.buf, byte(TokenDouble))
	e.putBE64(math.Float64bits(v))
}

// PushRaw writes a length-prefixed RAW token and payload.
func (e *Encoder) PushRaw(b []byte) {
	e.buf = append(e.buf, byte(TokenRaw))
	e.putPackedLen(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// PushRawTerm writes a null-terminated RAW_TERM token and payload. b must
// not contain a 0x00 byte.
func (e *Encoder) PushRawTerm(b []byte) {
	e.buf = append(e.buf, byte(TokenRawTerm))
	e.buf = append(e.buf, b...)
	e.buf = append(e.buf, 0x00)
}

// OpenArrayN writes a fixed-arity array header for n in 1..5, or an
// ARRAY_OPEN for any other n (the caller must then emit a matching
// CloseArray).
func (e *Encoder) OpenArrayN(n int) {
	e.buf = append(e.buf, byte(ArrayToken(n)))
}

// OpenArray writes a variable-length ARRAY_OPEN.
func (e *Encoder) OpenArray() { e.buf = append(e.buf, byte(TokenArrayOpen)) }

// CloseArray writes ARRAY_CLOSE.
func (e *Encoder) CloseArray() { e.buf = append(e.buf, byte(TokenArrayClose)) }

// OpenMap writes MAP_OPEN.
func (e *Encoder) OpenMap() { e.buf = append(e.buf, byte(TokenMapOpen)) }

// CloseMap writes MAP_CLOSE.
func (e *Encoder) CloseMap() { e.buf = append(e.buf, byte(TokenMapClose)) }

// End writes the stream terminator.
func (e *Encoder) End() { e.buf = append(e.buf, byte(TokenEnd)) }
