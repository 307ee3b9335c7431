// credctl exercises an authority end to end: it fetches the public
// descriptor, binds a fresh secret to its Name with MakeCredential, runs
// the policy session remotely, and asks for the gated unwrap.
package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/sanjit-bhat/credactive/authority"
	"github.com/sanjit-bhat/credactive/credential"
	"github.com/sanjit-bhat/credactive/object"
	"github.com/sanjit-bhat/credactive/policy"
)

// rsaExponent is implied by the descriptor, which carries the modulus only.
const rsaExponent = 65537

func run(addr string, activateCode uint32) error {
	c, err := authority.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	desc, err := c.Descriptor()
	if err != nil {
		return fmt.Errorf("fetching descriptor: %w", err)
	}
	rsaID, ok := desc.ID.(object.RSAID)
	if !ok {
		return fmt.Errorf("descriptor public id is %T, want RSA", desc.ID)
	}
	pub := &rsa.PublicKey{N: new(big.Int).SetBytes(rsaID.Modulus), E: rsaExponent}
	name, err := desc.Name()
	if err != nil {
		return err
	}

	size, err := desc.NameAlg.DigestSize()
	if err != nil {
		return err
	}
	secret := make([]byte, size)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	cred, wrapped, err := credential.Make(pub, secret, name, rand.Reader)
	if err != nil {
		return fmt.Errorf("make credential: %w", err)
	}

	tree := policy.Or{Branches: []policy.Node{policy.Command{Code: activateCode}}}
	branches, err := policy.BranchDigests(desc.NameAlg, tree)
	if err != nil {
		return err
	}
	handle, err := c.StartSession(desc.NameAlg)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	if err := c.Extend(handle, policy.Command{Code: activateCode}); err != nil {
		return fmt.Errorf("extend: %w", err)
	}
	if err := c.Finalize(handle, branches); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	got, err := c.GatedUnwrap(handle, cred, wrapped, name)
	if err != nil {
		return fmt.Errorf("gated unwrap: %w", err)
	}
	if !bytes.Equal(got, secret) {
		return fmt.Errorf("recovered secret differs from the bound one")
	}
	fmt.Printf("activated: recovered %d-byte secret under %v\n", len(got), desc.NameAlg)
	return nil
}

func main() {
	addr := flag.String("addr", "localhost:7815", "authority address")
	activateCode := flag.Uint("activate-code", 0, "command code the authority's policy requires")
	flag.Parse()

	if err := run(*addr, uint32(*activateCode)); err != nil {
		fmt.Println("credctl:", err)
		os.Exit(1)
	}
}
