package idremap

import "testing"

func TestRemapRoundTrip(t *testing.T) {
	r := New()
	r.Add(1, 101)
	r.Add(2, 102)

	if got, ok := r.ToFile(1); !ok || got != 101 {
		t.Fatalf("ToFile(1) = %d, %v, want 101, true", got, ok)
	}
	if got, ok := r.ToRuntime(102); !ok || got != 2 {
		t.Fatalf("ToRuntime(102) = %d, %v, want 2, true", got, ok)
	}
	if _, ok := r.ToFile(99); ok {
		t.Fatal("ToFile(99) unexpectedly found a mapping")
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
}
