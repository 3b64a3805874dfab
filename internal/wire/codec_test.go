package wire

import (
	"bytes"
	"testing"
)

func TestScalarRoundTrip(t *testing.T) {
	enc := NewEncoder(64)
	enc.PushInt(-1234567890123)
	enc.PushDouble(3.5)
	enc.PushRaw([]byte("hello"))
	enc.PushRawTerm([]byte("cpu.load"))
	enc.End()

	dec := NewDecoder(enc.Bytes())
	var v Value

	tok, err := dec.Next(&v)
	if err != nil || tok != TokenInt64 || v.Int64 != -1234567890123 {
		t.Fatalf("int64: tok=%v err=%v v=%v", tok, err, v.Int64)
	}
	tok, err = dec.Next(&v)
	if err != nil || tok != TokenDouble || v.Double != 3.5 {
		t.Fatalf("double: tok=%v err=%v v=%v", tok, err, v.Double)
	}
	tok, err = dec.Next(&v)
	if err != nil || tok != TokenRaw || !bytes.Equal(v.Raw, []byte("hello")) {
		t.Fatalf("raw: tok=%v err=%v v=%v", tok, err, v.Raw)
	}
	tok, err = dec.Next(&v)
	if err != nil || tok != TokenRawTerm || !bytes.Equal(v.Raw, []byte("cpu.load")) {
		t.Fatalf("raw term: tok=%v err=%v v=%v", tok, err, v.Raw)
	}
	tok, err = dec.Next(&v)
	if err != nil || tok != TokenEnd {
		t.Fatalf("end: tok=%v err=%v", tok, err)
	}
}

func TestPackedLengthBoundaries(t *testing.T) {
	sizes := []int{0, 1, 63, 64, 16383, 16384, 70000}
	for _, n := range sizes {
		payload := bytes.Repeat([]byte{'x'}, n)
		enc := NewEncoder(n + 16)
		enc.PushRaw(payload)
		dec := NewDecoder(enc.Bytes())
		var v Value
		tok, err := dec.Next(&v)
		if err != nil || tok != TokenRaw {
			t.Fatalf("size %d: tok=%v err=%v", n, tok, err)
		}
		if !bytes.Equal(v.Raw, payload) {
			t.Fatalf("size %d: payload mismatch len=%d", n, len(v.Raw))
		}
	}
}

func TestFixedArityArray(t *testing.T) {
	enc := NewEncoder(8)
	enc.OpenArrayN(2)
	dec := NewDecoder(enc.Bytes())
	var v Value
	tok, err := dec.Next(&v)
	if err != nil || tok != TokenArray2 {
		t.Fatalf("tok=%v err=%v", tok, err)
	}
	if tok.arity() != 2 {
		t.Fatalf("arity=%d", tok.arity())
	}
}

func TestOpenCloseNesting(t *testing.T) {
	enc := NewEncoder(8)
	enc.OpenMap()
	enc.OpenArray()
	enc.CloseArray()
	enc.CloseMap()
	dec := NewDecoder(enc.Bytes())
	var v Value
	for _, want := range []Token{TokenMapOpen, TokenArrayOpen, TokenArrayClose, TokenMapClose} {
		tok, err := dec.Next(&v)
		if err != nil || tok != want {
			t.Fatalf("want %v got %v err=%v", want, tok, err)
		}
	}
}

func TestCloseWithoutOpenIsMalformed(t *testing.T) {
	enc := NewEncoder(4)
	enc.CloseArray()
	dec := NewDecoder(enc.Bytes())
	var v Value
	if _, err := dec.Next(&v); err == nil {
		t.Fatal("expected malformed error for unmatched close")
	}
}

func TestTruncatedInputIsMalformed(t *testing.T) {
	enc := NewEncoder(4)
	enc.PushInt(42)
	truncated := enc.Bytes()[:3]
	dec := NewDecoder(truncated)
	var v Value
	if _, err := dec.Next(&v); err == nil {
		t.Fatal("expected malformed error for truncated input")
	}
}

func TestUnknownTagIsMalformed(t *testing.T) {
	dec := NewDecoder([]byte{0xFE})
	var v Value
	if _, err := dec.Next(&v); err == nil {
		t.Fatal("expected malformed error for unknown tag")
	}
}
