// Package policy builds authorization-policy digests from declarative
// policy trees and drives live sessions to match them. the offline
// [Digest] defines what a key requires; the online [Session] replays the
// same extensions and is compared against the requirement by the gate.
package policy

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sanjit-bhat/credactive/object"
)

var (
	// ErrPolicyNotSatisfied reports a session digest that does not match
	// the required policy digest. recoverable: restart and re-run.
	ErrPolicyNotSatisfied = errors.New("policy: not satisfied")
	// ErrSessionExpired reports a session touched past its liveness window.
	ErrSessionExpired = errors.New("policy: session expired")
	// ErrSessionState reports a lifecycle violation, e.g. extending a
	// finalized session.
	ErrSessionState = errors.New("policy: bad session state")
	// ErrUnknownSession reports a session handle with no live session.
	ErrUnknownSession = errors.New("policy: unknown session")
)

// Node is one policy-tree node. the kind set is closed: [Or], [Command],
// and [Secret]. evaluation is a single exhaustive switch; a new kind is a
// compile-time change here, not a runtime discovery.
type Node interface {
	node()
}

// Or authorizes any one of its branches. branch order is significant:
// the digest folds the full branch-digest list in declaration order.
type Or struct {
	Branches []Node
}

// Command restricts authorization to one operation code.
type Command struct {
	Code uint32
}

// Secret requires proof of authorization under the named handle.
type Secret struct {
	Handle uint32
}

func (Or) node()      {}
func (Command) node() {}
func (Secret) node()  {}

// Digest rets the offline policy digest of a tree: a pure function of tree
// shape and naming algorithm. identical trees always produce identical
// digests.
func Digest(alg object.Alg, tree Node) ([]byte, error) {
	size, err := alg.DigestSize()
	if err != nil {
		return nil, err
	}
	return nodeDigest(alg, make([]byte, size), tree)
}

// nodeDigest computes a node's digest from its parent's running digest.
// Command and Secret extend the parent; Or ignores it and hashes the
// ordered concatenation of its branch digests, each derived from a zero
// parent.
func nodeDigest(alg object.Alg, parent []byte, n Node) ([]byte, error) {
	switch n := n.(type) {
	case Command:
		return alg.Sum(parent, be32(n.Code))
	case Secret:
		return alg.Sum(parent, be32(n.Handle))
	case Or:
		zero := make([]byte, len(parent))
		var cat []byte
		for _, br := range n.Branches {
			bd, err := nodeDigest(alg, zero, br)
			if err != nil {
				return nil, err
			}
			cat = append(cat, bd...)
		}
		return alg.Sum(cat)
	default:
		return nil, fmt.Errorf("policy: unknown node kind %T", n)
	}
}

// BranchDigests rets the ordered branch-digest list of an Or node, as
// needed to finalize a session against it.
func BranchDigests(alg object.Alg, or Or) ([][]byte, error) {
	size, err := alg.DigestSize()
	if err != nil {
		return nil, err
	}
	zero := make([]byte, size)
	digs := make([][]byte, 0, len(or.Branches))
	for _, br := range or.Branches {
		bd, err := nodeDigest(alg, zero, br)
		if err != nil {
			return nil, err
		}
		digs = append(digs, bd)
	}
	return digs, nil
}

func be32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}
