// credauthd serves a key-holding authority: it loads the private key and
// the symmetric-profile keyset, derives the public descriptor with its
// required policy digest, and answers the session and gated-unwrap RPCs.
package main

import (
	"crypto/rsa"
	"crypto/x509"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/tink-crypto/tink-go/v2/aead"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	"github.com/tink-crypto/tink-go/v2/tink"

	"github.com/sanjit-bhat/credactive/authority"
	"github.com/sanjit-bhat/credactive/object"
	"github.com/sanjit-bhat/credactive/policy"
	"github.com/sanjit-bhat/credactive/transport"
)

type config struct {
	Addr          string `toml:"addr"`
	WindowSeconds int    `toml:"window_seconds"`
	RSAKey        string `toml:"rsa_key"`
	Keyset        string `toml:"keyset"`
	NameAlg       string `toml:"name_alg"`
	ActivateCode  uint32 `toml:"activate_code"`
}

func parseAlg(s string) (object.Alg, error) {
	switch s {
	case "", "sha256":
		return object.AlgSHA256, nil
	case "sha384":
		return object.AlgSHA384, nil
	case "blake3":
		return object.AlgBLAKE3, nil
	default:
		return 0, fmt.Errorf("unknown name_alg %q", s)
	}
}

func loadRSAKey(path string) (*rsa.PrivateKey, error) {
	der, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return x509.ParsePKCS1PrivateKey(der)
}

func loadAEAD(path string) (tink.AEAD, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	handle, err := insecurecleartextkeyset.Read(keyset.NewJSONReader(f))
	if err != nil {
		return nil, err
	}
	return aead.New(handle)
}

func main() {
	cfgPath := flag.String("config", "credauthd.toml", "config file")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Str("svc", "credauthd").Logger()

	var cfg config
	if _, err := toml.DecodeFile(*cfgPath, &cfg); err != nil {
		log.Fatal().Err(err).Msg("reading config")
	}
	if cfg.Addr == "" {
		cfg.Addr = "localhost:7815"
	}
	if cfg.WindowSeconds == 0 {
		cfg.WindowSeconds = 300
	}

	alg, err := parseAlg(cfg.NameAlg)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	priv, err := loadRSAKey(cfg.RSAKey)
	if err != nil {
		log.Fatal().Err(err).Msg("loading rsa key")
	}
	var psk tink.AEAD
	if cfg.Keyset != "" {
		psk, err = loadAEAD(cfg.Keyset)
		if err != nil {
			log.Fatal().Err(err).Msg("loading keyset")
		}
	}

	tree := policy.Or{Branches: []policy.Node{policy.Command{Code: cfg.ActivateCode}}}
	authPolicy, err := policy.Digest(alg, tree)
	if err != nil {
		log.Fatal().Err(err).Msg("computing policy digest")
	}
	desc := &object.PublicKeyDescriptor{
		NameAlg:    alg,
		AuthPolicy: authPolicy,
		ID:         object.RSAID{Modulus: priv.PublicKey.N.Bytes()},
	}
	name, err := desc.Name()
	if err != nil {
		log.Fatal().Err(err).Msg("computing name")
	}
	log.Info().Hex("name", name).Uint32("activate_code", cfg.ActivateCode).Msg("authority identity")

	auth := authority.New(priv, desc, psk, time.Duration(cfg.WindowSeconds)*time.Second, log)
	l, err := transport.Listen(cfg.Addr)
	if err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
	log.Info().Str("addr", l.Addr()).Msg("serving")
	authority.NewRPCServer(auth).Serve(l)
}
