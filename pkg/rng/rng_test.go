package rng

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/teslashibe/go-camrng/pkg/seed"
)

func testSeed(t *testing.T, s string) seed.Seed {
	t.Helper()
	sd, err := seed.Parse(s)
	if err != nil {
		t.Fatalf("seed.Parse(%q): %v", s, err)
	}
	return sd
}

func collect(g *Generator, n int) []int64 {
	return slices.Collect(g.Values(n))
}

func TestNewRejectsBadBounds(t *testing.T) {
	s := testSeed(t, "1")
	for _, b := range [][2]int64{{0, 0}, {5, 4}, {-1, -1}} {
		if _, err := New(s, b[0], b[1]); !errors.Is(err, ErrInvalidBounds) {
			t.Errorf("New(%d, %d): expected ErrInvalidBounds, got %v", b[0], b[1], err)
		}
	}
}

func TestSameSeedSameSequence(t *testing.T) {
	s := testSeed(t, "123456789012345678901234567890")

	g1, err := New(s, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := New(s, 0, 2)
	if err != nil {
		t.Fatal(err)
	}

	a, b := collect(g1, 3), collect(g2, 3)
	if !slices.Equal(a, b) {
		t.Errorf("same seed gave %v and %v", a, b)
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	g1, _ := New(testSeed(t, "1"), DefaultLower, DefaultUpper)
	g2, _ := New(testSeed(t, "2"), DefaultLower, DefaultUpper)
	if slices.Equal(collect(g1, 8), collect(g2, 8)) {
		t.Error("different seeds should not give identical 32-bit sequences")
	}
}

func TestValuesWithinBounds(t *testing.T) {
	cases := [][2]int64{
		{0, 2},
		{0, DefaultUpper},
		{-10, 10},
		{100, 101},
		{math.MinInt64, math.MaxInt64},
		{math.MaxInt64 - 3, math.MaxInt64},
	}
	s := testSeed(t, "987654321")
	for _, c := range cases {
		g, err := New(s, c[0], c[1])
		if err != nil {
			t.Fatalf("New(%d, %d): %v", c[0], c[1], err)
		}
		for v := range g.Values(500) {
			if v < c[0] || v >= c[1] {
				t.Fatalf("value %d outside [%d, %d)", v, c[0], c[1])
			}
		}
	}
}

func TestSingleValueRange(t *testing.T) {
	g, _ := New(testSeed(t, "5"), 7, 8)
	for v := range g.Values(10) {
		if v != 7 {
			t.Fatalf("expected 7, got %d", v)
		}
	}
}

func TestValuesCount(t *testing.T) {
	g, _ := New(testSeed(t, "5"), 0, 10)
	if n := len(collect(g, 0)); n != 0 {
		t.Errorf("expected no values, got %d", n)
	}
	if n := len(collect(g, 17)); n != 17 {
		t.Errorf("expected 17 values, got %d", n)
	}
}

func TestValuesStopsEarly(t *testing.T) {
	s := testSeed(t, "77")
	g1, _ := New(s, 0, 1000)
	g2, _ := New(s, 0, 1000)

	// Break after two values; the generator must not have consumed the rest.
	var first []int64
	for v := range g1.Values(100) {
		first = append(first, v)
		if len(first) == 2 {
			break
		}
	}
	third := g1.Next()

	want := collect(g2, 3)
	if !slices.Equal(append(first, third), want) {
		t.Errorf("got %v then %d, want %v", first, third, want)
	}
}

func TestDrawsCoverRange(t *testing.T) {
	g, _ := New(testSeed(t, "31337"), 0, 4)
	seen := map[int64]bool{}
	for v := range g.Values(400) {
		seen[v] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected all of 0..3 over 400 draws, saw %v", seen)
	}
}

func TestLabel(t *testing.T) {
	tests := map[int64]string{0: Heads, 1: Tails, 2: Heads, 7: Tails, -3: Tails, -4: Heads}
	for v, want := range tests {
		if got := Label(v); got != want {
			t.Errorf("Label(%d) = %s, want %s", v, got, want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(4, false); got != "4" {
		t.Errorf("Format(4, false) = %q", got)
	}
	if got := Format(4, true); got != "4 -> heads" {
		t.Errorf("Format(4, true) = %q", got)
	}
	if got := Format(-9, true); got != "-9 -> tails" {
		t.Errorf("Format(-9, true) = %q", got)
	}
}

func TestFlip(t *testing.T) {
	g, _ := New(testSeed(t, "8"), 0, 10)
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		f := g.Flip()
		if f != Heads && f != Tails {
			t.Fatalf("unexpected flip %q", f)
		}
		seen[f] = true
	}
	if len(seen) != 2 {
		t.Error("64 flips should show both faces")
	}
}

func TestLuckyDigits(t *testing.T) {
	s := testSeed(t, "2024")
	g1, _ := New(s, 0, 10)
	g2, _ := New(s, 0, 10)

	d := g1.LuckyDigits(12)
	if len(d) != 12 {
		t.Fatalf("expected 12 digits, got %q", d)
	}
	if strings.Trim(d, "0123456789") != "" {
		t.Errorf("non-digit output %q", d)
	}
	if d != g2.LuckyDigits(12) {
		t.Error("lucky digits must be deterministic for a seed")
	}
	if g1.LuckyDigits(0) != "" || g1.LuckyDigits(-2) != "" {
		t.Error("non-positive length gives empty digits")
	}
}
