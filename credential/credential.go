// Package credential implements credential activation: binding a secret
// to a Name so that only the holder of the named key's private material
// can recover it. [Make] wraps a secret against a Name from the public
// descriptor alone; [Activate] recovers it with the private key. the gate
// that must hold before activation (the policy session) lives with the
// key-holding authority, not here.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/goose-lang/std"
	"golang.org/x/crypto/hkdf"

	"github.com/sanjit-bhat/credactive/object"
)

var (
	// ErrSecretSizeMismatch reports a secret whose length is not the
	// naming algorithm's digest size.
	ErrSecretSizeMismatch = errors.New("credential: secret size mismatch")
	// ErrIntegrityCheckFailed reports a tag mismatch or failed unwrap:
	// tampered data, a stale Name, or the wrong key.
	ErrIntegrityCheckFailed = errors.New("credential: integrity check failed")
)

const (
	oaepLabel     = "IDENTITY"
	storageLabel  = "STORAGE"
	integLabel    = "INTEGRITY"
	storageKeyLen = 16
)

// Credential is the activation pair: an integrity tag over the encrypted
// identity and the Name, plus the encrypted identity itself.
type Credential struct {
	Integrity   []byte
	EncIdentity []byte
}

// Make binds secret to name, wrapping the transport seed under pub.
// len(secret) must equal the digest size of name's naming algorithm.
// rnd supplies the seed and the OAEP entropy; a nil rnd is the
// deterministic path, where the secret itself serves as the seed (OAEP
// entropy then comes from crypto/rand, which does not affect the
// credential pair's bytes).
func Make(pub *rsa.PublicKey, secret, name []byte, rnd io.Reader) (*Credential, []byte, error) {
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
	oaepRnd := rnd
	if rnd == nil {
		seed = std.BytesClone(secret)
		oaepRnd = rand.Reader
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
	h, err := alg.New()
	if err != nil {
		return nil, nil, err
	}
	wrapped, err := rsa.EncryptOAEP(h, oaepRnd, pub, seed, []byte(oaepLabel))
	if err != nil {
		return nil, nil, fmt.Errorf("credential: wrapping seed: %w", err)
	}
	return cred, wrapped, nil
}

// Activate recovers the secret bound by [Make]. it unwraps the seed with
// priv, re-derives the storage and integrity keys from (seed, name),
// checks the integrity tag in constant time, and only then decrypts.
func Activate(priv *rsa.PrivateKey, cred *Credential, wrapped, name []byte) ([]byte, error) {
	alg, err := object.ParseName(name)
	if err != nil {
		return nil, err
	}
	h, err := alg.New()
	if err != nil {
		return nil, err
	}
	seed, err := rsa.DecryptOAEP(h, nil, priv, wrapped, []byte(oaepLabel))
	if err != nil {
		return nil, fmt.Errorf("%w: seed unwrap", ErrIntegrityCheckFailed)
	}
	return open(alg, seed, name, cred)
}

// seal derives the storage and integrity keys from (seed, name), encrypts
// the secret, and tags encIdentity || name. keying the derivation with
// name is the binding step: different Names give unrelated keys even for
// the same seed.
func seal(alg object.Alg, seed, secret, name []byte) (*Credential, error) {
	encKey, macKey, err := deriveKeys(alg, seed, name)
	if err != nil {
		return nil, err
	}
	encIdentity := make([]byte, len(secret))
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	// the storage key is single-use per seed, so a fixed IV is sound and
	// keeps the pair reproducible from (seed, name).
	cipher.NewCFBEncrypter(block, make([]byte, aes.BlockSize)).XORKeyStream(encIdentity, secret)

	hf, err := hashFunc(alg)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(hf, macKey)
	mac.Write(encIdentity)
	mac.Write(name)
	return &Credential{Integrity: mac.Sum(nil), EncIdentity: encIdentity}, nil
}

func open(alg object.Alg, seed, name []byte, cred *Credential) ([]byte, error) {
	encKey, macKey, err := deriveKeys(alg, seed, name)
	if err != nil {
		return nil, err
	}
	hf, err := hashFunc(alg)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(hf, macKey)
	mac.Write(cred.EncIdentity)
	mac.Write(name)
	if !hmac.Equal(mac.Sum(nil), cred.Integrity) {
		// never decrypt on a failed check.
		return nil, fmt.Errorf("%w: tag mismatch", ErrIntegrityCheckFailed)
	}
	secret := make([]byte, len(cred.EncIdentity))
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	cipher.NewCFBDecrypter(block, make([]byte, aes.BlockSize)).XORKeyStream(secret, cred.EncIdentity)
	return secret, nil
}

func deriveKeys(alg object.Alg, seed, name []byte) (encKey, macKey []byte, err error) {
	hf, err := hashFunc(alg)
	if err != nil {
		return nil, nil, err
	}
	size, err := alg.DigestSize()
	if err != nil {
		return nil, nil, err
	}
	encKey, err = hkdfDerive(hf, seed, name, storageLabel, storageKeyLen)
	if err != nil {
		return nil, nil, err
	}
	macKey, err = hkdfDerive(hf, seed, name, integLabel, size)
	if err != nil {
		return nil, nil, err
	}
	return encKey, macKey, nil
}

func hkdfDerive(h func() hash.Hash, ikm, salt []byte, label string, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(h, ikm, salt, []byte(label)), out); err != nil {
		return nil, fmt.Errorf("credential: hkdf: %w", err)
	}
	return out, nil
}

func hashFunc(alg object.Alg) (func() hash.Hash, error) {
	if _, err := alg.New(); err != nil {
		return nil, err
	}
	return func() hash.Hash {
		h, _ := alg.New()
		return h
	}, nil
}
