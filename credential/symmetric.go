package credential

import (
	"fmt"
	"io"

	"github.com/goose-lang/std"
	"github.com/tink-crypto/tink-go/v2/tink"

	"github.com/sanjit-bhat/credactive/object"
)

// MakeSymmetric is [Make] for symmetric-only profiles: the transport seed
// is sealed under a pre-shared AEAD instead of an asymmetric key, with the
// Name as associated data so a wrap for one Name cannot open under
// another.
func MakeSymmetric(a tink.AEAD, secret, name []byte, rnd io.Reader) (*Credential, []byte, error) {
	alg, err := object.ParseName(name)
	if err != nil {
		return nil, nil, err
	}
	size, err := alg.DigestSize()
	if err != nil {
		return nil, nil, err
	}
	if len(secret) != size {
		return nil, nil, fmt.Errorf("%w: got %d bytes, naming digest is %d", ErrSecretSizeMismatch, len(secret), size)
	}

	var seed []byte
	if rnd == nil {
		seed = std.BytesClone(secret)
	} else {
		seed = make([]byte, size)
		if _, err := io.ReadFull(rnd, seed); err != nil {
			return nil, nil, fmt.Errorf("credential: drawing seed: %w", err)
		}
	}

	cred, err := seal(alg, seed, secret, name)
	if err != nil {
		return nil, nil, err
	}
	wrapped, err := a.Encrypt(seed, name)
	if err != nil {
		return nil, nil, fmt.Errorf("credential: sealing seed: %w", err)
	}
	return cred, wrapped, nil
}

// ActivateSymmetric recovers a secret bound by [MakeSymmetric].
func ActivateSymmetric(a tink.AEAD, cred *Credential, wrapped, name []byte) ([]byte, error) {
	alg, err := object.ParseName(name)
	if err != nil {
		return nil, err
	}
	seed, err := a.Decrypt(wrapped, name)
	if err != nil {
		return nil, fmt.Errorf("%w: seed unseal", ErrIntegrityCheckFailed)
	}
	return open(alg, seed, name, cred)
}
