package engine

import (
	"testing"
)

func TestFloats(t *testing.T) {
	tests := []struct {
		name    string
		seed    string
		cursor  uint64
		count   int
		wantLen int
	}{
		{name: "single float", seed: "study-001", cursor: 0, count: 1, wantLen: 1},
		{name: "multiple floats", seed: "study-001", cursor: 0, count: 64, wantLen: 64},
		{name: "skip ahead", seed: "study-001", cursor: 500, count: 8, wantLen: 8},
		{name: "negative count", seed: "study-001", cursor: 0, count: -3, wantLen: 0},
		{name: "empty seed", seed: "", cursor: 0, count: 4, wantLen: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			floats := Floats(tt.seed, tt.cursor, tt.count)

			if len(floats) != tt.wantLen {
				t.Errorf("Floats() returned %d floats, want %d", len(floats), tt.wantLen)
			}

			for i, f := range floats {
				if f <= 0 || f >= 1 {
					t.Errorf("Float %d is out of range (0, 1): %f", i, f)
				}
			}
		})
	}
}

func TestFloatsInto(t *testing.T) {
	dst := make([]float64, 10)
	result := FloatsInto(dst, "abc123", 0, 5)
	if len(result) != 5 {
		t.Errorf("FloatsInto() returned %d floats, want 5", len(result))
	}
	if &result[0] != &dst[0] {
		t.Error("FloatsInto() reallocated a buffer that was large enough")
	}

	small := make([]float64, 2)
	result2 := FloatsInto(small, "abc123", 0, 5)
	if len(result2) != 5 {
		t.Errorf("FloatsInto() with small buffer returned %d floats, want 5", len(result2))
	}
	for i := range result {
		if result[i] != result2[i] {
			t.Errorf("Float %d differs between buffers: %.15f vs %.15f", i, result[i], result2[i])
		}
	}
}

func TestEmptySeedUsesDefault(t *testing.T) {
	a := NewSource("")
	b := NewSource(DefaultSeed)
	if a.Seed() != DefaultSeed {
		t.Errorf("Seed() = %q, want %q", a.Seed(), DefaultSeed)
	}
	for i := 0; i < 16; i++ {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("draw %d: empty seed %.15f != default seed %.15f", i, x, y)
		}
	}
}

func TestSeedFromIntMatchesString(t *testing.T) {
	a := NewSource(SeedFromInt(42))
	b := NewSource("42")
	for i := 0; i < 16; i++ {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("draw %d: integer seed %.15f != string seed %.15f", i, x, y)
		}
	}
	if SeedFromInt(-7) != "-7" {
		t.Errorf("SeedFromInt(-7) = %q", SeedFromInt(-7))
	}
}

func TestNewSourceAtSkipsAhead(t *testing.T) {
	full := NewSource("abc123")
	var seq []float64
	for i := 0; i < 20; i++ {
		seq = append(seq, full.Next())
	}

	for cursor := uint64(0); cursor < 20; cursor++ {
		src := NewSourceAt("abc123", cursor)
		if src.Draws() != cursor {
			t.Errorf("Draws() = %d, want %d", src.Draws(), cursor)
		}
		if got := src.Next(); got != seq[cursor] {
			t.Errorf("cursor %d: got %.15f, want %.15f", cursor, got, seq[cursor])
		}
	}
}

func TestDeriveIsIndependent(t *testing.T) {
	parent := NewSource("study-001")
	pattern := parent.Derive("pattern")
	spawn := parent.Derive("spawn")

	if pattern.Seed() != "study-001|pattern" {
		t.Errorf("Derive seed = %q", pattern.Seed())
	}

	direct := NewSource("study-001|pattern")
	same := true
	for i := 0; i < 8; i++ {
		p, s, d := pattern.Next(), spawn.Next(), direct.Next()
		if p != d {
			t.Errorf("draw %d: derived %.15f != direct %.15f", i, p, d)
		}
		if p != s {
			same = false
		}
	}
	if same {
		t.Error("pattern and spawn streams are identical")
	}
	if parent.Draws() != 0 {
		t.Errorf("Derive advanced the parent stream to %d", parent.Draws())
	}
}

func TestHelpersStayInRange(t *testing.T) {
	src := NewSource("helpers")
	for i := 0; i < 2000; i++ {
		if v := src.Range(2, 5); v < 2 || v >= 5 {
			t.Fatalf("Range(2,5) = %f", v)
		}
		if v := src.Jitter(0.04); v < -0.04 || v >= 0.04 {
			t.Fatalf("Jitter(0.04) = %f", v)
		}
		if v := src.Intn(7); v < 0 || v >= 7 {
			t.Fatalf("Intn(7) = %d", v)
		}
	}
	if src.Intn(0) != 0 || src.Intn(-4) != 0 {
		t.Error("Intn with non-positive n should return 0")
	}
	if src.Chance(0) {
		t.Error("Chance(0) returned true")
	}
	if !src.Chance(1) {
		t.Error("Chance(1) returned false")
	}
}

func BenchmarkNext(b *testing.B) {
	src := NewSource("bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src.Next()
	}
}

func BenchmarkFloatsInto(b *testing.B) {
	dst := make([]float64, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FloatsInto(dst, "bench", uint64(i), 32)
	}
}
