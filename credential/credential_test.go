package credential

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	mathrand "math/rand/v2"
	"sync"
	"testing"

	"github.com/tink-crypto/tink-go/v2/aead"
	"github.com/tink-crypto/tink-go/v2/keyset"

	"github.com/sanjit-bhat/credactive/object"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func genKey(t *testing.T) *rsa.PrivateKey {
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatal(err)
		}
		testKey = k
	})
	return testKey
}

func makeDesc(alg object.Alg, pub *rsa.PublicKey) *object.PublicKeyDescriptor {
	return &object.PublicKeyDescriptor{
		NameAlg:    alg,
		Attrs:      0x00040072,
		AuthPolicy: bytes.Repeat([]byte{0x11}, 32),
		ID:         object.RSAID{Modulus: pub.N.Bytes()},
	}
}

func descName(t *testing.T, alg object.Alg, pub *rsa.PublicKey) []byte {
	name, err := makeDesc(alg, pub).Name()
	if err != nil {
		t.Fatal(err)
	}
	return name
}

func TestSymmetry(t *testing.T) {
	priv := genKey(t)
	for _, alg := range []object.Alg{object.AlgSHA256, object.AlgSHA384, object.AlgBLAKE3} {
		name := descName(t, alg, &priv.PublicKey)
		size, err := alg.DigestSize()
		if err != nil {
			t.Fatal(err)
		}
		secret := make([]byte, size)
		if _, err := rand.Read(secret); err != nil {
			t.Fatal(err)
		}

		cred, wrapped, err := Make(&priv.PublicKey, secret, name, rand.Reader)
		if err != nil {
			t.Fatal(alg, err)
		}
		got, err := Activate(priv, cred, wrapped, name)
		if err != nil {
			t.Fatal(alg, err)
		}
		if !bytes.Equal(got, secret) {
			t.Fatal(alg)
		}
	}
}

// both construction paths must be protocol-equivalent: fed the same
// inputs and the same randomness, they produce bit-identical pairs.
func TestBitCompatible(t *testing.T) {
	priv := genKey(t)
	name := descName(t, object.AlgSHA256, &priv.PublicKey)
	secret := bytes.Repeat([]byte{0x42}, 32)

	var seed [32]byte
	cred0, wrapped0, err := Make(&priv.PublicKey, secret, name, mathrand.NewChaCha8(seed))
	if err != nil {
		t.Fatal(err)
	}
	cred1, wrapped1, err := Make(&priv.PublicKey, secret, name, mathrand.NewChaCha8(seed))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cred0.Integrity, cred1.Integrity) {
		t.Fatal()
	}
	if !bytes.Equal(cred0.EncIdentity, cred1.EncIdentity) {
		t.Fatal()
	}
	if !bytes.Equal(wrapped0, wrapped1) {
		t.Fatal()
	}
}

// the deterministic path takes the secret as the seed; only the seed wrap
// draws entropy, so the credential pair itself is reproducible.
func TestDeterministicPath(t *testing.T) {
	priv := genKey(t)
	name := descName(t, object.AlgSHA256, &priv.PublicKey)
	secret := bytes.Repeat([]byte{0x17}, 32)

	cred0, wrapped0, err := Make(&priv.PublicKey, secret, name, nil)
	if err != nil {
		t.Fatal(err)
	}
	cred1, _, err := Make(&priv.PublicKey, secret, name, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cred0.Integrity, cred1.Integrity) || !bytes.Equal(cred0.EncIdentity, cred1.EncIdentity) {
		t.Fatal()
	}
	got, err := Activate(priv, cred0, wrapped0, name)
	if err != nil || !bytes.Equal(got, secret) {
		t.Fatal(err)
	}
}

func TestSecretSizeMismatch(t *testing.T) {
	priv := genKey(t)
	name := descName(t, object.AlgSHA256, &priv.PublicKey)
	for _, n := range []int{0, 31, 33, 48} {
		cred, wrapped, err := Make(&priv.PublicKey, make([]byte, n), name, rand.Reader)
		if !errors.Is(err, ErrSecretSizeMismatch) {
			t.Fatal(n, err)
		}
		// rejected before any crypto: nothing must come back.
		if cred != nil || wrapped != nil {
			t.Fatal(n)
		}
	}
}

func TestTamperDetected(t *testing.T) {
	priv := genKey(t)
	name := descName(t, object.AlgSHA256, &priv.PublicKey)
	secret := bytes.Repeat([]byte{3}, 32)
	cred, wrapped, err := Make(&priv.PublicKey, secret, name, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	flipped := &Credential{Integrity: cred.Integrity, EncIdentity: bytes.Clone(cred.EncIdentity)}
	flipped.EncIdentity[0] ^= 1
	if _, err := Activate(priv, flipped, wrapped, name); !errors.Is(err, ErrIntegrityCheckFailed) {
		t.Fatal(err)
	}

	flipped = &Credential{Integrity: bytes.Clone(cred.Integrity), EncIdentity: cred.EncIdentity}
	flipped.Integrity[0] ^= 1
	if _, err := Activate(priv, flipped, wrapped, name); !errors.Is(err, ErrIntegrityCheckFailed) {
		t.Fatal(err)
	}

	tampered := bytes.Clone(wrapped)
	tampered[0] ^= 1
	if _, err := Activate(priv, cred, tampered, name); !errors.Is(err, ErrIntegrityCheckFailed) {
		t.Fatal(err)
	}
}

// a credential bound to one Name must not activate under the Name of a
// mutated descriptor: the derivation is keyed by the Name.
func TestNameBinding(t *testing.T) {
	priv := genKey(t)
	desc := makeDesc(object.AlgSHA256, &priv.PublicKey)
	name, err := desc.Name()
	if err != nil {
		t.Fatal(err)
	}
	secret := bytes.Repeat([]byte{9}, 32)
	cred, wrapped, err := Make(&priv.PublicKey, secret, name, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	desc.Attrs ^= 1
	mutName, err := desc.Name()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(name, mutName) {
		t.Fatal("mutation did not change the name")
	}
	if _, err := Activate(priv, cred, wrapped, mutName); !errors.Is(err, ErrIntegrityCheckFailed) {
		t.Fatal(err)
	}
}

func TestSymmetricProfile(t *testing.T) {
	handle, err := keyset.NewHandle(aead.AES256GCMKeyTemplate())
	if err != nil {
		t.Fatal(err)
	}
	psk, err := aead.New(handle)
	if err != nil {
		t.Fatal(err)
	}

	priv := genKey(t)
	name := descName(t, object.AlgBLAKE3, &priv.PublicKey)
	secret := bytes.Repeat([]byte{0x2e}, 32)

	cred, wrapped, err := MakeSymmetric(psk, secret, name, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ActivateSymmetric(psk, cred, wrapped, name)
	if err != nil || !bytes.Equal(got, secret) {
		t.Fatal(err)
	}

	// the Name is the AEAD's associated data; a different Name must fail.
	otherName := descName(t, object.AlgSHA256, &priv.PublicKey)
	if _, err := ActivateSymmetric(psk, cred, wrapped, otherName); !errors.Is(err, ErrIntegrityCheckFailed) {
		t.Fatal(err)
	}
}

func TestCredentialWire(t *testing.T) {
	cred := &Credential{
		Integrity:   bytes.Repeat([]byte{1}, 32),
		EncIdentity: bytes.Repeat([]byte{2}, 5),
	}
	enc, err := cred.Encode()
	if err != nil {
		t.Fatal(err)
	}
	// canonical order: size, tag bytes, size, identity bytes.
	if enc[0] != 0 || enc[1] != 32 {
		t.Fatal()
	}
	if enc[2+32] != 0 || enc[2+32+1] != 5 {
		t.Fatal()
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec.Integrity, cred.Integrity) || !bytes.Equal(dec.EncIdentity, cred.EncIdentity) {
		t.Fatal()
	}
}
