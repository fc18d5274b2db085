// Package rng draws bounded integers from a PRNG keyed by a frame seed.
//
// The generator is ChaCha8 from math/rand/v2 keyed with the 32 seed bytes, so
// a seed fully determines the sequence. It is not meant to be a CSPRNG.
package rng

import (
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"strings"

	"github.com/samber/lo"
	"github.com/teslashibe/go-camrng/pkg/seed"
)

// Coin-flip labels.
const (
	Heads = "heads"
	Tails = "tails"
)

// Default bounds: [0, 2^32).
const (
	DefaultLower int64 = 0
	DefaultUpper int64 = 1 << 32
)

// ErrInvalidBounds is returned when upper is not greater than lower.
var ErrInvalidBounds = errors.New("--upper must be greater than --lower")

// CheckBounds validates a [lower, upper) range.
func CheckBounds(lower, upper int64) error {
	if upper <= lower {
		return fmt.Errorf("%w (lower=%d, upper=%d)", ErrInvalidBounds, lower, upper)
	}
	return nil
}

// Generator emits integers in [lower, upper).
// It is not safe for concurrent use.
type Generator struct {
	r     *rand.Rand
	lower int64
	span  uint64
}

// New seeds a generator for the range [lower, upper).
func New(s seed.Seed, lower, upper int64) (*Generator, error) {
	if err := CheckBounds(lower, upper); err != nil {
		return nil, err
	}
	return &Generator{
		r:     rand.New(rand.NewChaCha8(s)),
		lower: lower,
		// upper > lower, so the wrapped difference is the exact width.
		span: uint64(upper) - uint64(lower),
	}, nil
}

// Next draws one value uniformly from [lower, upper).
func (g *Generator) Next() int64 {
	return g.lower + int64(g.r.Uint64N(g.span))
}

// Values yields n sequential draws. Values are produced only as the caller
// asks for them; stopping early leaves the remaining draws untaken.
func (g *Generator) Values(n int) iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for i := 0; i < n; i++ {
			if !yield(g.Next()) {
				return
			}
		}
	}
}

// Label returns Heads for even v and Tails for odd v.
func Label(v int64) string {
	return lo.Ternary(v%2 == 0, Heads, Tails)
}

// Format renders v the way the CLI prints it.
func Format(v int64, coinFlip bool) string {
	if coinFlip {
		return fmt.Sprintf("%d -> %s", v, Label(v))
	}
	return fmt.Sprintf("%d", v)
}

// Flip draws a single coin flip, independent of the generator's bounds.
func (g *Generator) Flip() string {
	return Label(int64(g.r.Uint64N(2)))
}

// LuckyDigits returns n decimal digits, each drawn from [0, 10).
func (g *Generator) LuckyDigits(n int) string {
	var b strings.Builder
	b.Grow(max(n, 0))
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + g.r.Uint64N(10)))
	}
	return b.String()
}
