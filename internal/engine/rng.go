package engine

import (
	"strconv"
	"unicode/utf16"
)

const (
	// DefaultSeed is used when a caller supplies an empty seed. It is a fixed
	// constant so an explicitly requested deterministic run never falls back to
	// the wall clock.
	DefaultSeed = "hha"

	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619

	// zeroStateFallback replaces a zero hash; xorshift32 is stuck at zero otherwise.
	zeroStateFallback uint32 = 123456789
)

// Source is a deterministic uniform generator. Two sources built from the same
// seed and advanced by the same number of draws produce identical sequences.
// A Source is not safe for concurrent use; each session owns its own.
type Source struct {
	seed  string
	state uint32
	draws uint64
}

// NewSource creates a source seeded from the given string.
func NewSource(seed string) *Source {
	if seed == "" {
		seed = DefaultSeed
	}
	return &Source{
		seed:  seed,
		state: stateFromSeed(seed),
	}
}

// NewSourceAt creates a source positioned after cursor draws, so
// NewSourceAt(s, n).Next() equals the (n+1)-th value of NewSource(s).
func NewSourceAt(seed string, cursor uint64) *Source {
	src := NewSource(seed)
	for i := uint64(0); i < cursor; i++ {
		src.step()
	}
	return src
}

// SeedFromInt coerces an integer seed to its string form so "42" and 42 seed
// identical streams.
func SeedFromInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// HashSeed returns the 32-bit FNV-1a hash of the seed's UTF-16 code units.
func HashSeed(seed string) uint32 {
	h := fnvOffset32
	for _, unit := range utf16.Encode([]rune(seed)) {
		h ^= uint32(unit)
		h *= fnvPrime32
	}
	return h
}

func stateFromSeed(seed string) uint32 {
	h := HashSeed(seed)
	if h == 0 {
		return zeroStateFallback
	}
	return h
}

func (s *Source) step() uint32 {
	x := s.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.state = x
	s.draws++
	return x
}

// Next returns the next float in [0, 1). The state is never zero, so the
// result is never exactly 0 or 1.
func (s *Source) Next() float64 {
	return float64(s.step()) / 4294967296.0
}

// Seed returns the seed the source was built from.
func (s *Source) Seed() string { return s.seed }

// Draws returns how many values have been drawn (the cursor).
func (s *Source) Draws() uint64 { return s.draws }

// Derive returns an independent stream seeded with "seed|label".
func (s *Source) Derive(label string) *Source {
	return NewSource(s.seed + "|" + label)
}

// Range returns a float in [lo, hi).
func (s *Source) Range(lo, hi float64) float64 {
	return lo + (hi-lo)*s.Next()
}

// Jitter returns a float in [-amp, amp).
func (s *Source) Jitter(amp float64) float64 {
	return (s.Next()*2 - 1) * amp
}

// Intn returns an int in [0, n). It returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(s.Next() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Chance reports whether a draw falls below p.
func (s *Source) Chance(p float64) bool {
	return s.Next() < p
}

// Floats generates count floats for the seed starting at the given cursor.
func Floats(seed string, cursor uint64, count int) []float64 {
	return FloatsInto(nil, seed, cursor, count)
}

// FloatsInto fills dst with floats, allocating only when dst is too small.
func FloatsInto(dst []float64, seed string, cursor uint64, count int) []float64 {
	if count < 0 {
		count = 0
	}
	if len(dst) < count {
		dst = make([]float64, count)
	}
	src := NewSourceAt(seed, cursor)
	for i := 0; i < count; i++ {
		dst[i] = src.Next()
	}
	return dst[:count]
}
