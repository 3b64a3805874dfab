package classify

import (
	"testing"

	"siriinsert/internal/wire"
)

// fixedRouter routes by an explicit lookup table, for deterministic tests.
type fixedRouter map[string]uint16

func (r fixedRouter) PoolOf(name []byte) uint16 { return r[string(name)] }

func defaultLimits() Limits {
	return Limits{TsMin: 0, TsMax: 2_000_000_000}
}

func buildMapPayload(t *testing.T, build func(enc *wire.Encoder)) []byte {
	t.Helper()
	enc := wire.NewEncoder(256)
	enc.OpenMap()
	build(enc)
	enc.CloseMap()
	return enc.Bytes()
}

func decodePoolPoints(t *testing.T, packer *wire.Encoder) map[string][][2]any {
	t.Helper()
	out := make(map[string][][2]any)
	dec := wire.NewDecoder(packer.Bytes())
	var v wire.Value

	tok, err := dec.Next(&v)
	if err != nil || tok != wire.TokenMapOpen {
		t.Fatalf("packer must start with MAP_OPEN: tok=%v err=%v", tok, err)
	}
	for {
		tok, err = dec.Next(&v)
		if err != nil {
			t.Fatal(err)
		}
		if tok == wire.TokenMapClose {
			break
		}
		if tok != wire.TokenRawTerm {
			t.Fatalf("expected series name, got %v", tok)
		}
		name := string(v.Raw)

		tok, err = dec.Next(&v)
		if err != nil || tok != wire.TokenArrayOpen {
			t.Fatalf("expected ARRAY_OPEN for points, got %v err=%v", tok, err)
		}
		for {
			tok, err = dec.Next(&v)
			if err != nil {
				t.Fatal(err)
			}
			if tok == wire.TokenArrayClose {
				break
			}
			if tok != wire.TokenArray2 {
				t.Fatalf("expected ARRAY2 point, got %v", tok)
			}
			tsTok, err := dec.Next(&v)
			if err != nil || tsTok != wire.TokenInt64 {
				t.Fatalf("expected ts INT64, got %v err=%v", tsTok, err)
			}
			ts := v.Int64
			valTok, err := dec.Next(&v)
			if err != nil {
				t.Fatal(err)
			}
			var val any
			switch valTok {
			case wire.TokenInt64:
				val = v.Int64
			case wire.TokenDouble:
				val = v.Double
			case wire.TokenRaw:
				val = string(v.Raw)
			default:
				t.Fatalf("unexpected value token %v", valTok)
			}
			out[name] = append(out[name], [2]any{ts, val})
		}
	}
	return out
}

func TestClassifySingleSeriesThreePoints(t *testing.T) {
	payload := buildMapPayload(t, func(enc *wire.Encoder) {
		enc.PushRawTerm([]byte("cpu.load"))
		enc.OpenArray()
		for _, p := range []struct {
			ts  int64
			val float64
		}{{1000, 0.5}, {1001, 0.6}, {1002, 0.7}} {
			enc.OpenArrayN(2)
			enc.PushInt(p.ts)
			enc.PushDouble(p.val)
		}
		enc.CloseArray()
	})

	router := fixedRouter{"cpu.load": 0}
	res, err := Classify(wire.NewDecoder(payload), defaultLimits(), router)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalPoints != 3 {
		t.Fatalf("expected 3 points, got %d", res.TotalPoints)
	}
	if len(res.Packers) != 1 {
		t.Fatalf("expected 1 pool packer, got %d", len(res.Packers))
	}
	pts := decodePoolPoints(t, res.Packers[0])
	if len(pts["cpu.load"]) != 3 {
		t.Fatalf("expected 3 points for cpu.load, got %d", len(pts["cpu.load"]))
	}
	for i, ts := range []int64{1000, 1001, 1002} {
		if pts["cpu.load"][i][0].(int64) != ts {
			t.Fatalf("point %d out of order: %v", i, pts["cpu.load"][i])
		}
	}
}

func TestClassifyTwoSeriesTwoPools(t *testing.T) {
	payload := buildMapPayload(t, func(enc *wire.Encoder) {
		enc.PushRawTerm([]byte("a"))
		enc.OpenArray()
		enc.OpenArrayN(2)
		enc.PushInt(1000)
		enc.PushInt(1)
		enc.CloseArray()

		enc.PushRawTerm([]byte("b"))
		enc.OpenArray()
		enc.OpenArrayN(2)
		enc.PushInt(1001)
		enc.PushInt(2)
		enc.CloseArray()
	})

	router := fixedRouter{"a": 0, "b": 1}
	res, err := Classify(wire.NewDecoder(payload), defaultLimits(), router)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalPoints != 2 {
		t.Fatalf("expected 2 points total, got %d", res.TotalPoints)
	}
	if len(res.Packers) != 2 {
		t.Fatalf("expected 2 pool packers, got %d", len(res.Packers))
	}
	pool0 := decodePoolPoints(t, res.Packers[0])
	pool1 := decodePoolPoints(t, res.Packers[1])
	if _, ok := pool0["a"]; !ok || len(pool0) != 1 {
		t.Fatalf("pool 0 should contain only 'a': %v", pool0)
	}
	if _, ok := pool1["b"]; !ok || len(pool1) != 1 {
		t.Fatalf("pool 1 should contain only 'b': %v", pool1)
	}
}

func TestClassifyMalformedPointMissingValue(t *testing.T) {
	// Mirrors spec.md scenario 3: {"x": [[1000]]}. The point claims arity
	// 2 (ARRAY2) but only a timestamp is supplied; the token that follows
	// the timestamp is the enclosing points-array's ARRAY_CLOSE, which is
	// not a valid value token.
	enc := wire.NewEncoder(64)
	enc.OpenMap()
	enc.PushRawTerm([]byte("x"))
	enc.OpenArray()
	enc.OpenArrayN(2)
	enc.PushInt(1000)
	enc.CloseArray()
	enc.CloseMap()

	router := fixedRouter{"x": 0}
	res, err := Classify(wire.NewDecoder(enc.Bytes()), defaultLimits(), router)
	if err == nil {
		t.Fatal("expected a classification error")
	}
	if res != nil {
		t.Fatal("expected no outbound packages on classification error")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Code != ErrUnsupportedValue {
		t.Fatalf("expected UNSUPPORTED_VALUE, got %v", err)
	}
}

func TestClassifyTimestampOutOfRange(t *testing.T) {
	payload := buildMapPayload(t, func(enc *wire.Encoder) {
		enc.PushRawTerm([]byte("x"))
		enc.OpenArray()
		enc.OpenArrayN(2)
		enc.PushInt(-5)
		enc.PushInt(1)
		enc.CloseArray()
	})
	router := fixedRouter{"x": 0}
	_, err := Classify(wire.NewDecoder(payload), Limits{TsMin: 0, TsMax: 2_000_000_000}, router)
	cerr, ok := err.(*Error)
	if !ok || cerr.Code != ErrTimestampOutOfRange {
		t.Fatalf("expected TIMESTAMP_OUT_OF_RANGE, got %v", err)
	}
}

func TestClassifyEmptySeries(t *testing.T) {
	payload := buildMapPayload(t, func(enc *wire.Encoder) {
		enc.PushRawTerm([]byte("x"))
		enc.OpenArray()
		enc.CloseArray()
	})
	router := fixedRouter{"x": 0}
	_, err := Classify(wire.NewDecoder(payload), defaultLimits(), router)
	cerr, ok := err.(*Error)
	if !ok || cerr.Code != ErrExpectingAtLeastOnePoint {
		t.Fatalf("expected EXPECTING_AT_LEAST_ONE_POINT, got %v", err)
	}
}

func TestClassifyRepeatedSeriesNameConcatenates(t *testing.T) {
	payload := buildMapPayload(t, func(enc *wire.Encoder) {
		for _, ts := range []int64{1000, 1001} {
			enc.PushRawTerm([]byte("x"))
			enc.OpenArray()
			enc.OpenArrayN(2)
			enc.PushInt(ts)
			enc.PushInt(1)
			enc.CloseArray()
		}
	})
	router := fixedRouter{"x": 0}
	res, err := Classify(wire.NewDecoder(payload), defaultLimits(), router)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalPoints != 2 {
		t.Fatalf("expected 2 points, got %d", res.TotalPoints)
	}
	// Two separate map entries for "x", not one merged array.
	dec := wire.NewDecoder(res.Packers[0].Bytes())
	var v wire.Value
	dec.Next(&v) // MAP_OPEN
	seen := 0
	for {
		tok, _ := dec.Next(&v)
		if tok == wire.TokenMapClose {
			break
		}
		if tok == wire.TokenRawTerm {
			seen++
		}
		dec.Next(&v) // ARRAY_OPEN
		for {
			t2, _ := dec.Next(&v)
			if t2 == wire.TokenArrayClose {
				break
			}
			dec.Next(&v) // ts
			dec.Next(&v) // val
		}
	}
	if seen != 2 {
		t.Fatalf("expected 2 map entries for repeated series name, got %d", seen)
	}
}

func TestClassifyReservedFlatArrayProducesNoOutput(t *testing.T) {
	enc := wire.NewEncoder(8)
	enc.OpenArray()
	enc.CloseArray()
	router := fixedRouter{}
	res, err := Classify(wire.NewDecoder(enc.Bytes()), defaultLimits(), router)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Packers) != 0 || res.TotalPoints != 0 {
		t.Fatalf("expected no output for reserved flat-array shape, got %+v", res)
	}
}
