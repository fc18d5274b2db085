// Package seed derives a PRNG seed from the content of a captured frame.
//
// The frame is encoded as PNG, the encoded bytes are hashed with SHA-256 and
// the digest is read as a big-endian unsigned 256-bit integer.
package seed

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math/big"
	"strings"
)

// Size is the width of a seed in bytes.
const Size = sha256.Size

// Sentinel errors.
var (
	// ErrInvalidSeed is returned by Parse for text that is not a decimal
	// integer in [0, 2^256).
	ErrInvalidSeed = errors.New("seed: invalid seed")
)

// EncodingError reports a frame that could not be encoded for hashing.
type EncodingError struct {
	Err error
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode frame for seeding: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Seed is a SHA-256 digest interpreted as a big-endian integer.
type Seed [Size]byte

// Derive encodes img as PNG and hashes the encoded bytes.
// Identical pixels always give the same seed.
func Derive(img image.Image) (Seed, error) {
	if img == nil {
		return Seed{}, &EncodingError{Err: errors.New("nil frame")}
	}
	encoded, err := Encode(img)
	if err != nil {
		return Seed{}, err
	}
	return FromEncoded(encoded), nil
}

// Encode returns the PNG encoding that Derive hashes.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &EncodingError{Err: err}
	}
	return buf.Bytes(), nil
}

// FromEncoded hashes an already encoded frame.
func FromEncoded(encoded []byte) Seed {
	return Seed(sha256.Sum256(encoded))
}

// Parse reads a decimal integer in [0, 2^256) as a seed.
func Parse(s string) (Seed, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Seed{}, fmt.Errorf("%w: %q is not a decimal integer", ErrInvalidSeed, s)
	}
	if n.Sign() < 0 {
		return Seed{}, fmt.Errorf("%w: must be non-negative", ErrInvalidSeed)
	}
	if n.BitLen() > Size*8 {
		return Seed{}, fmt.Errorf("%w: must be below 2^%d", ErrInvalidSeed, Size*8)
	}
	var sd Seed
	n.FillBytes(sd[:])
	return sd, nil
}

// Int returns the seed as a non-negative integer.
func (s Seed) Int() *big.Int {
	return new(big.Int).SetBytes(s[:])
}

// String returns the decimal form of the seed.
func (s Seed) String() string {
	return s.Int().String()
}

// Hex returns the digest in lowercase hex.
func (s Seed) Hex() string {
	return fmt.Sprintf("%x", s[:])
}
