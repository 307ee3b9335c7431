// Package object defines public-key descriptors, their canonical wire
// encoding, and Names. a Name is the digest of a descriptor's canonical
// encoding under the descriptor's own naming algorithm, and is the binding
// target for credential activation.
package object

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"

	"github.com/sanjit-bhat/credactive/wire"
)

// Alg identifies a naming algorithm. the set is closed; ids follow the
// registry enumerants, with BLAKE3-256 in the vendor range.
type Alg uint16

const (
	AlgSHA256 Alg = 0x000b
	AlgSHA384 Alg = 0x000c
	AlgBLAKE3 Alg = 0x0027
)

// New rets a fresh hasher for the algorithm.
func (a Alg) New() (hash.Hash, error) {
	switch a {
	case AlgSHA256:
		return sha256.New(), nil
	case AlgSHA384:
		return sha512.New384(), nil
	case AlgBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("%w: naming algorithm %#x", wire.ErrUnsupportedAlgorithm, uint16(a))
	}
}

// DigestSize rets the algorithm's digest length in bytes.
func (a Alg) DigestSize() (int, error) {
	h, err := a.New()
	if err != nil {
		return 0, err
	}
	return h.Size(), nil
}

// Sum rets the digest of the concatenation of parts.
func (a Alg) Sum(parts ...[]byte) ([]byte, error) {
	h, err := a.New()
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil), nil
}

func (a Alg) String() string {
	switch a {
	case AlgSHA256:
		return "sha256"
	case AlgSHA384:
		return "sha384"
	case AlgBLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("alg(%#x)", uint16(a))
	}
}
