package policy

import (
	"bytes"
	"fmt"

	"github.com/goose-lang/std"

	"github.com/sanjit-bhat/credactive/object"
)

// State is a session's lifecycle state.
type State uint8

const (
	StateFresh State = iota
	StateExtended
	StateFinalized
	StateConsumed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateExtended:
		return "extended"
	case StateFinalized:
		return "finalized"
	case StateConsumed:
		return "consumed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Session is a live policy execution: a running digest plus lifecycle
// state. it is single-writer; callers needing concurrency use distinct
// sessions.
type Session struct {
	alg   object.Alg
	dig   []byte
	state State
}

// NewSession rets a fresh session with an all-zero running digest.
func NewSession(alg object.Alg) (*Session, error) {
	size, err := alg.DigestSize()
	if err != nil {
		return nil, err
	}
	return &Session{alg: alg, dig: make([]byte, size)}, nil
}

func (s *Session) Alg() object.Alg { return s.alg }
func (s *Session) State() State    { return s.state }

// Digest rets a copy of the running digest.
func (s *Session) Digest() []byte {
	return std.BytesClone(s.dig)
}

// Extend folds one Command or Secret step into the running digest,
// exactly as [Digest] derives it offline.
func (s *Session) Extend(n Node) error {
	if s.state != StateFresh && s.state != StateExtended {
		return fmt.Errorf("%w: extend in %v", ErrSessionState, s.state)
	}
	switch n := n.(type) {
	case Command:
		dig, err := s.alg.Sum(s.dig, be32(n.Code))
		if err != nil {
			return err
		}
		s.dig = dig
	case Secret:
		dig, err := s.alg.Sum(s.dig, be32(n.Handle))
		if err != nil {
			return err
		}
		s.dig = dig
	case Or:
		return fmt.Errorf("policy: Or nodes fold at finalize, not extend")
	default:
		return fmt.Errorf("policy: unknown node kind %T", n)
	}
	s.state = StateExtended
	return nil
}

// fold checks that the running digest is one of the Or branches, then
// replaces it with the digest of the full ordered branch list. the session
// is left untouched on mismatch.
func (s *Session) fold(branches [][]byte) error {
	found := false
	for _, bd := range branches {
		if bytes.Equal(s.dig, bd) {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: running digest is not a declared branch", ErrPolicyNotSatisfied)
	}
	var cat []byte
	for _, bd := range branches {
		cat = append(cat, bd...)
	}
	dig, err := s.alg.Sum(cat)
	if err != nil {
		return err
	}
	s.dig = dig
	return nil
}

// Finalize folds the root Or's ordered branch-digest list (nil for trees
// with no root Or) and seals the session. only a finalized session can be
// consumed by a gated operation.
func (s *Session) Finalize(branches [][]byte) error {
	if s.state != StateFresh && s.state != StateExtended {
		return fmt.Errorf("%w: finalize in %v", ErrSessionState, s.state)
	}
	if len(branches) > 0 {
		if err := s.fold(branches); err != nil {
			return err
		}
	}
	s.state = StateFinalized
	return nil
}

// Consume marks a finalized session used. a consumed session must be
// restarted and re-run before it can gate anything again.
func (s *Session) Consume() error {
	if s.state != StateFinalized {
		return fmt.Errorf("%w: consume in %v", ErrSessionState, s.state)
	}
	s.state = StateConsumed
	return nil
}

// Restart rets the session to fresh with a zero digest, from any state.
func (s *Session) Restart() {
	s.dig = make([]byte, len(s.dig))
	s.state = StateFresh
}

// Run drives a fresh session along one declared branch of the tree and
// finalizes it. path holds one branch index per Or node met on the way
// down. afterwards the session digest equals [Digest] of the tree iff
// exactly the declared tree was followed.
func Run(s *Session, tree Node, path ...int) error {
	if s.state != StateFresh {
		return fmt.Errorf("%w: run in %v", ErrSessionState, s.state)
	}
	rest, err := runNode(s, tree, path)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("policy: %d unused branch choices", len(rest))
	}
	return s.Finalize(nil)
}

func runNode(s *Session, n Node, path []int) ([]int, error) {
	switch n := n.(type) {
	case Command, Secret:
		return path, s.Extend(n)
	case Or:
		if len(path) == 0 {
			return nil, fmt.Errorf("policy: missing branch choice for Or node")
		}
		idx := path[0]
		path = path[1:]
		if idx < 0 || idx >= len(n.Branches) {
			return nil, fmt.Errorf("policy: branch choice %d out of range", idx)
		}
		path, err := runNode(s, n.Branches[idx], path)
		if err != nil {
			return nil, err
		}
		digs, err := BranchDigests(s.alg, n)
		if err != nil {
			return nil, err
		}
		return path, s.fold(digs)
	default:
		return nil, fmt.Errorf("policy: unknown node kind %T", n)
	}
}
