package authority

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"math/big"
	"testing"

	"github.com/sanjit-bhat/credactive/credential"
	"github.com/sanjit-bhat/credactive/object"
	"github.com/sanjit-bhat/credactive/policy"
	"github.com/sanjit-bhat/credactive/transport"
)

func startServer(t *testing.T, f *fixture) string {
	l, err := transport.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	go NewRPCServer(f.auth).Serve(l)
	return l.Addr()
}

// the full protocol over the wire: fetch the descriptor, bind a fresh
// secret to its Name, run the declared Or[Command] policy remotely, and
// unwrap through the gate.
func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	addr := startServer(t, f)

	c, err := Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	desc, err := c.Descriptor()
	if err != nil {
		t.Fatal(err)
	}
	rsaID, ok := desc.ID.(object.RSAID)
	if !ok {
		t.Fatal()
	}
	pub := &rsa.PublicKey{N: new(big.Int).SetBytes(rsaID.Modulus), E: f.priv.PublicKey.E}
	name, err := desc.Name()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(name, f.name) {
		t.Fatal("descriptor did not survive transport")
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		t.Fatal(err)
	}
	cred, wrapped, err := credential.Make(pub, secret, name, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	handle, err := c.StartSession(desc.NameAlg)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Extend(handle, policy.Command{Code: activateCode}); err != nil {
		t.Fatal(err)
	}
	branches, err := policy.BranchDigests(desc.NameAlg, f.tree)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Finalize(handle, branches); err != nil {
		t.Fatal(err)
	}

	got, err := c.GatedUnwrap(handle, cred, wrapped, name)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatal()
	}
}

// sentinel errors survive the status-byte mapping across the wire.
func TestRemoteErrors(t *testing.T) {
	f := newFixture(t)
	addr := startServer(t, f)

	c, err := Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Restart(404); !errors.Is(err, policy.ErrUnknownSession) {
		t.Fatal(err)
	}

	secret, cred, wrapped := f.makeCred(t)
	handle, err := c.StartSession(object.AlgSHA256)
	if err != nil {
		t.Fatal(err)
	}
	// wrong policy first; recover by restart and re-run.
	if err := c.Extend(handle, policy.Command{Code: 0x999}); err != nil {
		t.Fatal(err)
	}
	if err := c.Finalize(handle, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GatedUnwrap(handle, cred, wrapped, f.name); !errors.Is(err, policy.ErrPolicyNotSatisfied) {
		t.Fatal(err)
	}

	if err := c.Restart(handle); err != nil {
		t.Fatal(err)
	}
	if err := c.Extend(handle, policy.Command{Code: activateCode}); err != nil {
		t.Fatal(err)
	}
	branches, err := policy.BranchDigests(object.AlgSHA256, f.tree)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Finalize(handle, branches); err != nil {
		t.Fatal(err)
	}
	got, err := c.GatedUnwrap(handle, cred, wrapped, f.name)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatal()
	}
}
