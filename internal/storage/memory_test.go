package storage

import "testing"

func TestAppendPreservesOrder(t *testing.T) {
	s := NewStore()
	h, err := s.NewHandle([]byte("cpu.load"), 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, ts := range []int64{1000, 1001, 1002} {
		if err := s.Append(h, ts, float64(i)); err != nil {
			t.Fatal(err)
		}
	}
	pts := s.Points("cpu.load")
	if len(pts) != 3 {
		t.Fatalf("expected 3 points, got %d", len(pts))
	}
	for i, ts := range []int64{1000, 1001, 1002} {
		if pts[i].TimestampMs != ts {
			t.Fatalf("point %d: ts=%d want %d", i, pts[i].TimestampMs, ts)
		}
	}
	if s.SeriesCount() != 1 {
		t.Fatalf("expected 1 series, got %d", s.SeriesCount())
	}
}
