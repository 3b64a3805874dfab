package series

import (
	"sync"
	"testing"

	"siriinsert/internal/collab"
)

type fakeHandle struct {
	name     string
	inferred collab.ValueType
}

func newTestRegistry() *Registry {
	return New(func(name []byte, inferred collab.ValueType) (collab.SeriesHandle, error) {
		return &fakeHandle{name: string(name), inferred: inferred}, nil
	})
}

func TestGetOrCreateCreatesOnce(t *testing.T) {
	r := newTestRegistry()
	h1, err := r.GetOrCreate([]byte("cpu.load"), collab.ValueTypeFloat)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := r.GetOrCreate([]byte("cpu.load"), collab.ValueTypeInteger)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("expected the same handle on repeated get-or-create")
	}
	vt, ok := r.ValueTypeOf([]byte("cpu.load"))
	if !ok || vt != collab.ValueTypeFloat {
		t.Fatalf("expected first-seen type float, got %v ok=%v", vt, ok)
	}
}

func TestGetOrCreateConcurrentSameName(t *testing.T) {
	r := newTestRegistry()
	const n = 64
	handles := make([]collab.SeriesHandle, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			h, err := r.GetOrCreate([]byte("shared"), collab.ValueTypeInteger)
			if err != nil {
				t.Error(err)
				return
			}
			handles[i] = h
		}()
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if handles[i] != handles[0] {
			t.Fatalf("handle %d differs from handle 0: concurrent creation was not serialized", i)
		}
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 series registered, got %d", r.Len())
	}
}
