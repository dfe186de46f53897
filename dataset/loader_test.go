package dataset

import "testing"

func TestLoaderBatching(t *testing.T) {
	b := NewBatch(syntheticExamples(10))

	loader, err := NewLoader(b, 3, false, 1)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	if loader.Batches() != 4 {
		t.Errorf("Batches() = %d, want 4", loader.Batches())
	}

	var sizes []int
	seen := make(map[float32]bool)
	for loader.HasNext() {
		mb, err := loader.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		sizes = append(sizes, mb.Size())
		for _, img := range mb.Images {
			seen[img[0]] = true
		}
		if len(mb.Images) != len(mb.Labels) {
			t.Errorf("mini-batch has %d images but %d labels", len(mb.Images), len(mb.Labels))
		}
	}

	wantSizes := []int{3, 3, 3, 1}
	if len(sizes) != len(wantSizes) {
		t.Fatalf("epoch yielded %d mini-batches, want %d", len(sizes), len(wantSizes))
	}
	for i, w := range wantSizes {
		if sizes[i] != w {
			t.Errorf("mini-batch %d size = %d, want %d", i, sizes[i], w)
		}
	}
	if len(seen) != 10 {
		t.Errorf("epoch covered %d distinct examples, want 10", len(seen))
	}
}

func TestLoaderPreservesOrderWithoutShuffle(t *testing.T) {
	b := NewBatch(syntheticExamples(6))

	loader, err := NewLoader(b, 2, false, 1)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	next := float32(0)
	for loader.HasNext() {
		mb, err := loader.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		for _, img := range mb.Images {
			if img[0] != next {
				t.Fatalf("example out of order: got %v, want %v", img[0], next)
			}
			next++
		}
	}
}

func TestLoaderShuffleDeterministic(t *testing.T) {
	b := NewBatch(syntheticExamples(50))

	order := func(seed int64) []float32 {
		loader, err := NewLoader(b, 50, true, seed)
		if err != nil {
			t.Fatalf("NewLoader failed: %v", err)
		}
		mb, err := loader.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out := make([]float32, 0, mb.Size())
		for _, img := range mb.Images {
			out = append(out, img[0])
		}
		return out
	}

	a := order(42)
	c := order(42)
	for i := range a {
		if a[i] != c[i] {
			t.Fatalf("same seed produced different order at %d: %v vs %v", i, a[i], c[i])
		}
	}

	identity := true
	for i, v := range a {
		if v != float32(i) {
			identity = false
			break
		}
	}
	if identity {
		t.Error("shuffle left 50 examples in source order")
	}
}

func TestLoaderResetStartsNewEpoch(t *testing.T) {
	b := NewBatch(syntheticExamples(4))

	loader, err := NewLoader(b, 2, true, 9)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	for loader.HasNext() {
		if _, err := loader.Next(); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
	}
	if _, err := loader.Next(); err == nil {
		t.Error("Next after exhaustion succeeded, want error")
	}

	loader.Reset()
	if !loader.HasNext() {
		t.Fatal("HasNext is false after Reset")
	}
	seen := make(map[float32]bool)
	for loader.HasNext() {
		mb, err := loader.Next()
		if err != nil {
			t.Fatalf("Next failed after Reset: %v", err)
		}
		for _, img := range mb.Images {
			seen[img[0]] = true
		}
	}
	if len(seen) != 4 {
		t.Errorf("second epoch covered %d examples, want 4", len(seen))
	}
}

func TestLoaderValidation(t *testing.T) {
	if _, err := NewLoader(nil, 2, false, 1); err == nil {
		t.Error("NewLoader(nil batch) succeeded, want error")
	}
	if _, err := NewLoader(NewBatch(nil), 2, false, 1); err == nil {
		t.Error("NewLoader(empty batch) succeeded, want error")
	}
	if _, err := NewLoader(NewBatch(syntheticExamples(2)), 0, false, 1); err == nil {
		t.Error("NewLoader(batch size 0) succeeded, want error")
	}
}
