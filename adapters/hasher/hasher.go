// Package hasher provides content digest implementations.
package hasher

import (
	"encoding/hex"

	"github.com/artpar/envspec/ports"
	"golang.org/x/crypto/blake2b"
)

// DefaultSize is the digest length in bytes used when none is configured.
const DefaultSize = 16

// Blake2b digests content with BLAKE2b.
type Blake2b struct {
	size int
}

// NewBlake2b creates a hasher producing size-byte digests. Sizes outside
// 1..64 fall back to DefaultSize.
func NewBlake2b(size int) *Blake2b {
	if size < 1 || size > blake2b.Size {
		size = DefaultSize
	}
	return &Blake2b{size: size}
}

// Digest returns the hex-encoded digest of data.
func (h *Blake2b) Digest(data []byte) string {
	d, err := blake2b.New(h.size, nil)
	if err != nil {
		// Unreachable: size is validated in NewBlake2b and there is no key.
		panic(err)
	}
	d.Write(data)
	return hex.EncodeToString(d.Sum(nil))
}

// Ensure interface compliance.
var _ ports.Hasher = (*Blake2b)(nil)

// Fake returns the data itself, hex-encoded (NOT FOR PRODUCTION).
type Fake struct{}

// Digest hex-encodes data unchanged.
func (Fake) Digest(data []byte) string {
	return hex.EncodeToString(data)
}

// Ensure interface compliance.
var _ ports.Hasher = Fake{}
