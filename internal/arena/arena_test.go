package arena

import (
	"testing"

	"github.com/nmoscene/nmofile/internal/nmoerr"
)

func TestAllocGrowsAndTracksBytesUsed(t *testing.T) {
	a := New(64, 0)
	buf, err := a.Alloc(16, 1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if len(buf) != 16 {
		t.Fatalf("Alloc returned %d bytes, want 16", len(buf))
	}
	if got := a.BytesUsed(); got != 16 {
		t.Fatalf("BytesUsed() = %d, want 16", got)
	}
	if _, err := a.Alloc(128, 1); err != nil {
		t.Fatalf("Alloc requiring a new region: %v", err)
	}
	if got := a.TotalAllocated(); got < 64+128 {
		t.Fatalf("TotalAllocated() = %d, want at least %d", got, 64+128)
	}
}

func TestAllocOutOfMemory(t *testing.T) {
	a := New(16, 32)
	if _, err := a.Alloc(8, 1); err != nil {
		t.Fatalf("Alloc within budget: %v", err)
	}
	if _, err := a.Alloc(64, 1); err == nil {
		t.Fatal("expected OutOfMemory allocating past maxBytes")
	} else if !nmoerr.IsKind(err, nmoerr.OutOfMemory) {
		t.Fatalf("expected OutOfMemory, got %v", err)
	}
}

func TestResetRewindsWithoutReleasingStorage(t *testing.T) {
	a := New(64, 0)
	if _, err := a.Alloc(32, 1); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	before := a.TotalAllocated()
	a.Reset()
	if a.BytesUsed() != 0 {
		t.Fatalf("BytesUsed() after Reset = %d, want 0", a.BytesUsed())
	}
	if a.TotalAllocated() != before {
		t.Fatalf("TotalAllocated() after Reset = %d, want unchanged %d", a.TotalAllocated(), before)
	}
}

func TestInternString(t *testing.T) {
	a := New(64, 0)
	s, err := a.InternString("hello")
	if err != nil {
		t.Fatalf("InternString: %v", err)
	}
	if s != "hello" {
		t.Fatalf("InternString() = %q, want %q", s, "hello")
	}
}

func TestArrayPushPopRemoveAndDispose(t *testing.T) {
	a := New(64, 0)
	arr := NewArray[int](a)
	disposed := []int{}
	arr.Dispose = func(v int) { disposed = append(disposed, v) }

	arr.Push(1)
	arr.Push(2)
	arr.Push(3)
	if arr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", arr.Len())
	}
	arr.Set(1, 20)
	if arr.At(1) != 20 {
		t.Fatalf("At(1) = %d, want 20", arr.At(1))
	}
	arr.RemoveAt(0)
	if arr.Len() != 2 || arr.At(0) != 20 {
		t.Fatalf("after RemoveAt(0): len=%d at(0)=%d, want 2, 20", arr.Len(), arr.At(0))
	}
	v, ok := arr.Pop()
	if !ok || v != 3 {
		t.Fatalf("Pop() = %d, %v, want 3, true", v, ok)
	}
	arr.Clear()
	if arr.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", arr.Len())
	}
	if len(disposed) != 3 {
		t.Fatalf("Dispose called %d times, want 3 (one RemoveAt, one Pop, one Clear)", len(disposed))
	}
}

func TestMapPutGetKeysValues(t *testing.T) {
	a := New(64, 0)
	m := NewMap[string, int](a)
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)

	if v, ok := m.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) = %d, %v, want 2, true", v, ok)
	}
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}

	keys := m.Keys()
	if len(keys) != 3 {
		t.Fatalf("Keys() = %v, want 3 entries", keys)
	}
	values := m.Values()
	sum := 0
	for _, v := range values {
		sum += v
	}
	if sum != 6 {
		t.Fatalf("sum(Values()) = %d, want 6", sum)
	}

	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Fatal("Get(a) found after Delete")
	}
	m.Clear()
	if m.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", m.Len())
	}
}

func TestSetAddHasSorted(t *testing.T) {
	a := New(64, 0)
	s := NewSet[int](a)
	s.Add(3)
	s.Add(1)
	s.Add(2)
	s.Add(1)

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if !s.Has(2) {
		t.Fatal("Has(2) = false")
	}

	sorted := Sorted(s, func(a, b int) int { return a - b })
	want := []int{1, 2, 3}
	for i, v := range want {
		if sorted[i] != v {
			t.Fatalf("Sorted() = %v, want %v", sorted, want)
		}
	}

	s.Delete(2)
	if s.Has(2) {
		t.Fatal("Has(2) = true after Delete")
	}
}

func TestBitArraySetClearCountReset(t *testing.T) {
	a := New(64, 0)
	b := NewBitArray(a, 10)
	b.Set(0)
	b.Set(9)
	b.Set(9) // idempotent
	if !b.Get(0) || !b.Get(9) {
		t.Fatal("Get returned false for a set bit")
	}
	if b.Get(5) {
		t.Fatal("Get(5) = true, want false for an unset bit")
	}
	if got := b.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
	b.Clear(9)
	if b.Get(9) {
		t.Fatal("Get(9) = true after Clear(9)")
	}
	if got := b.Count(); got != 1 {
		t.Fatalf("Count() after Clear(9) = %d, want 1", got)
	}
	b.Reset()
	if b.Count() != 0 {
		t.Fatalf("Count() after Reset = %d, want 0", b.Count())
	}
}

func TestBitArrayGrowsPastInitialSize(t *testing.T) {
	a := New(64, 0)
	b := NewBitArray(a, 4)
	b.Set(200)
	if !b.Get(200) {
		t.Fatal("Get(200) = false after Set(200) beyond initial word count")
	}
	if b.Get(199) {
		t.Fatal("Get(199) = true, want false")
	}
}
