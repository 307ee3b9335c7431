// Package authority is the key-holding side of credential activation. it
// owns the private key, its descriptor, and every live policy session,
// and it gates seed unwrapping on a finalized session matching the
// descriptor's required policy digest.
package authority

import (
	"bytes"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tink-crypto/tink-go/v2/tink"

	"github.com/sanjit-bhat/credactive/credential"
	"github.com/sanjit-bhat/credactive/object"
	"github.com/sanjit-bhat/credactive/policy"
	"github.com/sanjit-bhat/credactive/wire"
)

// unwrap profiles.
const (
	ProfileAsymmetric byte = 0
	ProfileSymmetric  byte = 1
)

type liveSession struct {
	sess    *policy.Session
	started time.Time
}

// Authority holds one key and its sessions. all session state is behind
// one mutex; each session is still single-writer by contract, the lock
// only keeps the table and the lifecycle checks coherent.
type Authority struct {
	mu       sync.Mutex
	priv     *rsa.PrivateKey
	desc     *object.PublicKeyDescriptor
	aead     tink.AEAD
	window   time.Duration
	sessions map[uint64]*liveSession
	nextID   uint64
	now      func() time.Time
	log      zerolog.Logger
}

// New rets an authority for priv/desc. aead is the pre-shared key for the
// symmetric-only profile and may be nil. window is the session liveness
// window; a session older than it answers [policy.ErrSessionExpired]
// until restarted.
func New(priv *rsa.PrivateKey, desc *object.PublicKeyDescriptor, aead tink.AEAD, window time.Duration, log zerolog.Logger) *Authority {
	return &Authority{
		priv:     priv,
		desc:     desc,
		aead:     aead,
		window:   window,
		sessions: make(map[uint64]*liveSession),
		now:      time.Now,
		log:      log,
	}
}

// Descriptor rets the canonical encoding of the public descriptor, for
// transport to the party defining a secret.
func (a *Authority) Descriptor() ([]byte, error) {
	return a.desc.Canonical()
}

// StartSession opens a fresh policy session and rets its handle.
func (a *Authority) StartSession(alg object.Alg) (uint64, error) {
	sess, err := policy.NewSession(alg)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	id := a.nextID
	a.sessions[id] = &liveSession{sess: sess, started: a.now()}
	a.log.Debug().Uint64("session", id).Stringer("alg", alg).Msg("session started")
	return id, nil
}

// touch rets a live, unexpired session. callers hold a.mu.
func (a *Authority) touch(id uint64) (*liveSession, error) {
	ls, ok := a.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: handle %d", policy.ErrUnknownSession, id)
	}
	if a.now().Sub(ls.started) > a.window {
		return nil, fmt.Errorf("%w: handle %d", policy.ErrSessionExpired, id)
	}
	return ls, nil
}

// Extend folds one policy step into the session's running digest.
func (a *Authority) Extend(id uint64, n policy.Node) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ls, err := a.touch(id)
	if err != nil {
		return err
	}
	return ls.sess.Extend(n)
}

// Finalize seals the session, folding the root Or branch list if given.
func (a *Authority) Finalize(id uint64, branches [][]byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ls, err := a.touch(id)
	if err != nil {
		return err
	}
	return ls.sess.Finalize(branches)
}

// Restart rets the session to fresh and re-arms its liveness window.
// allowed even on an expired session; that is the recovery path.
func (a *Authority) Restart(id uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ls, ok := a.sessions[id]
	if !ok {
		return fmt.Errorf("%w: handle %d", policy.ErrUnknownSession, id)
	}
	ls.sess.Restart()
	ls.started = a.now()
	return nil
}

// GatedUnwrap is ActivateCredential behind the policy gate: it requires a
// finalized session whose digest equals the descriptor's required policy
// digest, unwraps the seed under the requested profile, and recovers the
// secret. the session is consumed on success. failures are returned,
// never retried; a policy mismatch is recoverable by restarting the
// session and re-running the policy.
func (a *Authority) GatedUnwrap(id uint64, profile byte, cred *credential.Credential, wrapped, name []byte) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ls, err := a.touch(id)
	if err != nil {
		a.log.Warn().Uint64("session", id).Err(err).Msg("gate refused")
		return nil, err
	}
	if ls.sess.State() != policy.StateFinalized {
		a.log.Warn().Uint64("session", id).Stringer("state", ls.sess.State()).Msg("gate refused: session not finalized")
		return nil, fmt.Errorf("%w: session not finalized", policy.ErrPolicyNotSatisfied)
	}
	if !bytes.Equal(ls.sess.Digest(), a.desc.AuthPolicy) {
		a.log.Warn().Uint64("session", id).Msg("gate refused: policy digest mismatch")
		return nil, fmt.Errorf("%w: session digest does not match required policy", policy.ErrPolicyNotSatisfied)
	}

	var secret []byte
	switch profile {
	case ProfileAsymmetric:
		secret, err = credential.Activate(a.priv, cred, wrapped, name)
	case ProfileSymmetric:
		if a.aead == nil {
			return nil, fmt.Errorf("%w: no pre-shared key for symmetric profile", wire.ErrUnsupportedAlgorithm)
		}
		secret, err = credential.ActivateSymmetric(a.aead, cred, wrapped, name)
	default:
		return nil, fmt.Errorf("%w: unwrap profile %d", wire.ErrUnsupportedAlgorithm, profile)
	}
	if err != nil {
		a.log.Warn().Uint64("session", id).Err(err).Msg("activation failed")
		return nil, err
	}
	if err := ls.sess.Consume(); err != nil {
		return nil, err
	}
	a.log.Info().Uint64("session", id).Msg("credential activated")
	return secret, nil
}
