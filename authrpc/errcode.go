package authrpc

import (
	"errors"
	"fmt"

	"github.com/sanjit-bhat/credactive/credential"
	"github.com/sanjit-bhat/credactive/policy"
	"github.com/sanjit-bhat/credactive/wire"
)

// reply status codes. the failure taxonomy crosses the wire as a single
// byte so callers get back the same sentinel the authority raised.
const (
	codeOK uint8 = iota
	codeMalformed
	codeUnsupportedAlg
	codeSecretSize
	codeIntegrity
	codePolicy
	codeExpired
	codeSessionState
	codeUnknownSession
	codeInternal uint8 = 255
)

func codeOf(err error) uint8 {
	switch {
	case err == nil:
		return codeOK
	case errors.Is(err, wire.ErrMalformedEncoding):
		return codeMalformed
	case errors.Is(err, wire.ErrUnsupportedAlgorithm):
		return codeUnsupportedAlg
	case errors.Is(err, credential.ErrSecretSizeMismatch):
		return codeSecretSize
	case errors.Is(err, credential.ErrIntegrityCheckFailed):
		return codeIntegrity
	case errors.Is(err, policy.ErrPolicyNotSatisfied):
		return codePolicy
	case errors.Is(err, policy.ErrSessionExpired):
		return codeExpired
	case errors.Is(err, policy.ErrSessionState):
		return codeSessionState
	case errors.Is(err, policy.ErrUnknownSession):
		return codeUnknownSession
	default:
		return codeInternal
	}
}

func errOf(code uint8) error {
	switch code {
	case codeOK:
		return nil
	case codeMalformed:
		return wire.ErrMalformedEncoding
	case codeUnsupportedAlg:
		return wire.ErrUnsupportedAlgorithm
	case codeSecretSize:
		return credential.ErrSecretSizeMismatch
	case codeIntegrity:
		return credential.ErrIntegrityCheckFailed
	case codePolicy:
		return policy.ErrPolicyNotSatisfied
	case codeExpired:
		return policy.ErrSessionExpired
	case codeSessionState:
		return policy.ErrSessionState
	case codeUnknownSession:
		return policy.ErrUnknownSession
	default:
		return fmt.Errorf("authrpc: remote error (code %d)", code)
	}
}
