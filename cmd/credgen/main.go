// credgen writes the authority's key material to disk: an RSA private key
// in PKCS#1 DER, and a cleartext tink AEAD keyset for the symmetric-only
// profile.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"flag"
	"fmt"
	"os"

	"github.com/tink-crypto/tink-go/v2/aead"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
)

func main() {
	rsaPath := flag.String("rsa-key", "authority.key", "output path for the RSA private key (PKCS#1 DER)")
	keysetPath := flag.String("keyset", "authority.keyset.json", "output path for the symmetric-profile tink keyset")
	bits := flag.Int("bits", 2048, "RSA key size")
	flag.Parse()

	priv, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		fmt.Println("failed rsa key gen:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*rsaPath, x509.MarshalPKCS1PrivateKey(priv), 0o600); err != nil {
		fmt.Println("failed to write rsa key:", err)
		os.Exit(1)
	}

	handle, err := keyset.NewHandle(aead.AES256GCMKeyTemplate())
	if err != nil {
		fmt.Println("failed keyset gen:", err)
		os.Exit(1)
	}
	f, err := os.OpenFile(*keysetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		fmt.Println("failed to open keyset file:", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := insecurecleartextkeyset.Write(handle, keyset.NewJSONWriter(f)); err != nil {
		fmt.Println("failed to write keyset:", err)
		os.Exit(1)
	}

	fmt.Println("wrote", *rsaPath, "and", *keysetPath)
}
