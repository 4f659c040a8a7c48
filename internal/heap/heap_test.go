package heap

import "testing"

func TestOrdersByLess(t *testing.T) {
	h := New(func(a, b int) bool { return a < b })
	for _, v := range []int{10, 4, 100, 8, 20} {
		h.Push(v)
	}
	want := []int{4, 8, 10, 20, 100}
	for _, w := range want {
		if top, ok := h.Peek(); !ok || top != w {
			t.Fatalf("Peek() = %v, %v, want %v, true", top, ok, w)
		}
		if top, ok := h.Pop(); !ok || top != w {
			t.Fatalf("Pop() = %v, %v, want %v, true", top, ok, w)
		}
	}
	if _, ok := h.Pop(); ok {
		t.Errorf("Pop() on empty heap returned ok")
	}
}

func TestSize(t *testing.T) {
	h := New(func(a, b int) bool { return a < b })
	if h.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", h.Size())
	}
	h.Push(1)
	h.Push(2)
	if h.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", h.Size())
	}
	h.Pop()
	if h.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", h.Size())
	}
}
