package spatial

import (
	"math"
	"testing"
)

func TestRectSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"valid untouched", Rect{10, 20, 300, 200}, Rect{10, 20, 300, 200}},
		{"nan fields zeroed", Rect{math.NaN(), 5, 100, math.Inf(1)}, Rect{0, 5, 100, MinExtent}},
		{"negative extent flipped", Rect{100, 100, -40, -20}, Rect{60, 80, 40, 20}},
		{"degenerate raised", Rect{0, 0, 0, 0}, Rect{0, 0, MinExtent, MinExtent}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Sanitize(MinExtent); got != tt.want {
				t.Errorf("Sanitize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRectGeometry(t *testing.T) {
	r := Rect{0, 0, 10, 10}
	if !r.Contains(10, 10) || !r.Contains(0, 5) || r.Contains(10.01, 5) {
		t.Error("Contains edge handling wrong")
	}
	if d := r.Distance(13, 14); d != 5 {
		t.Errorf("Distance = %v, want 5", d)
	}
	if d := r.Distance(5, 5); d != 0 {
		t.Errorf("Distance inside = %v, want 0", d)
	}
	if got := r.Inflate(1); got != (Rect{-1, -1, 12, 12}) {
		t.Errorf("Inflate = %+v", got)
	}
	x, y := r.Clamp(-3, 20)
	if x != 0 || y != 10 {
		t.Errorf("Clamp = (%v, %v)", x, y)
	}
}

func TestMergeOverlapping(t *testing.T) {
	tests := []struct {
		name string
		in   []Rect
		want int
	}{
		{"none", nil, 0},
		{"disjoint kept", []Rect{{0, 0, 1, 1}, {5, 5, 1, 1}}, 2},
		{"pair merged", []Rect{{0, 0, 2, 2}, {1, 1, 2, 2}}, 1},
		{"chain merged", []Rect{{0, 0, 2, 1}, {4, 0, 2, 1}, {1.5, 0, 3, 1}}, 1},
		{"empty dropped", []Rect{{0, 0, 0, 4}, {1, 1, 1, 1}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeOverlapping(tt.in)
			if len(got) != tt.want {
				t.Fatalf("MergeOverlapping() returned %d rects, want %d: %+v", len(got), tt.want, got)
			}
			for i := range got {
				for j := i + 1; j < len(got); j++ {
					if got[i].Overlaps(got[j]) {
						t.Errorf("rects %d and %d still overlap", i, j)
					}
				}
			}
		})
	}

	merged := MergeOverlapping([]Rect{{0, 0, 2, 2}, {1, 1, 2, 2}})
	if merged[0] != (Rect{0, 0, 3, 3}) {
		t.Errorf("merged bounds = %+v, want {0 0 3 3}", merged[0])
	}
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 10; i++ {
		h.Push(Entry{X: float64(i), Cell: i})
		if h.Len() > h.Capacity() {
			t.Fatalf("Len %d exceeds capacity %d", h.Len(), h.Capacity())
		}
	}
	entries := h.Entries()
	if len(entries) != 3 || entries[0].X != 7 || entries[2].X != 9 {
		t.Errorf("Entries() = %+v, want the last three oldest first", entries)
	}
	if !h.HasCell(8) || h.HasCell(2) || h.HasCell(NoCell) {
		t.Error("HasCell wrong after eviction")
	}
	h.Clear()
	if _, ok := h.Last(); ok || h.Len() != 0 {
		t.Error("Clear did not empty history")
	}

	if NewHistory(0).Capacity() != 1 || NewHistory(100).Capacity() != 32 {
		t.Error("capacity not clamped to [1,32]")
	}
}
