package policy

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sanjit-bhat/credactive/object"
)

func twoBranchTree() Or {
	return Or{Branches: []Node{
		Command{Code: 0x147},
		Secret{Handle: 0x40000001},
	}}
}

func TestDigestDeterministic(t *testing.T) {
	for _, alg := range []object.Alg{object.AlgSHA256, object.AlgSHA384, object.AlgBLAKE3} {
		d0, err := Digest(alg, twoBranchTree())
		if err != nil {
			t.Fatal(err)
		}
		d1, err := Digest(alg, twoBranchTree())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(d0, d1) {
			t.Fatal(alg)
		}
	}
}

func TestDigestShapeSensitive(t *testing.T) {
	alg := object.AlgSHA256
	base, err := Digest(alg, twoBranchTree())
	if err != nil {
		t.Fatal(err)
	}
	// different command code.
	other, err := Digest(alg, Or{Branches: []Node{Command{Code: 0x148}, Secret{Handle: 0x40000001}}})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(base, other) {
		t.Fatal()
	}
	// branch order matters.
	swapped, err := Digest(alg, Or{Branches: []Node{Secret{Handle: 0x40000001}, Command{Code: 0x147}}})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(base, swapped) {
		t.Fatal()
	}
}

func TestRunMatchesDigest(t *testing.T) {
	alg := object.AlgSHA256
	tree := twoBranchTree()
	want, err := Digest(alg, tree)
	if err != nil {
		t.Fatal(err)
	}
	for branch := range tree.Branches {
		s, err := NewSession(alg)
		if err != nil {
			t.Fatal(err)
		}
		if err := Run(s, tree, branch); err != nil {
			t.Fatal(err)
		}
		if s.State() != StateFinalized {
			t.Fatal()
		}
		if !bytes.Equal(s.Digest(), want) {
			t.Fatal("branch", branch)
		}
	}
}

func TestRunLeafTree(t *testing.T) {
	alg := object.AlgSHA256
	tree := Command{Code: 5}
	want, err := Digest(alg, tree)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewSession(alg)
	if err != nil {
		t.Fatal(err)
	}
	if err := Run(s, tree); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(s.Digest(), want) {
		t.Fatal()
	}
}

func TestRunNestedOr(t *testing.T) {
	alg := object.AlgBLAKE3
	inner := Or{Branches: []Node{Command{Code: 1}, Command{Code: 2}}}
	tree := Or{Branches: []Node{inner, Secret{Handle: 3}}}
	want, err := Digest(alg, tree)
	if err != nil {
		t.Fatal(err)
	}
	// take the inner Or's second branch: one index per Or on the path.
	s, err := NewSession(alg)
	if err != nil {
		t.Fatal(err)
	}
	if err := Run(s, tree, 0, 1); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(s.Digest(), want) {
		t.Fatal()
	}
}

func TestUndeclaredBranchRejected(t *testing.T) {
	alg := object.AlgSHA256
	tree := twoBranchTree()
	branches, err := BranchDigests(alg, tree)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewSession(alg)
	if err != nil {
		t.Fatal(err)
	}
	// execute a step that is not a declared branch.
	if err := s.Extend(Command{Code: 0x999}); err != nil {
		t.Fatal(err)
	}
	if err := s.Finalize(branches); !errors.Is(err, ErrPolicyNotSatisfied) {
		t.Fatal(err)
	}
	// recoverable: restart and run the declared branch.
	s.Restart()
	if err := Run(s, tree, 0); err != nil {
		t.Fatal(err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	alg := object.AlgSHA256
	s, err := NewSession(alg)
	if err != nil {
		t.Fatal(err)
	}
	zero := make([]byte, 32)
	if s.State() != StateFresh || !bytes.Equal(s.Digest(), zero) {
		t.Fatal()
	}

	if err := s.Extend(Command{Code: 1}); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateExtended {
		t.Fatal()
	}
	if err := s.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Extend(Command{Code: 2}); !errors.Is(err, ErrSessionState) {
		t.Fatal(err)
	}
	if err := s.Finalize(nil); !errors.Is(err, ErrSessionState) {
		t.Fatal(err)
	}
	if err := s.Consume(); err != nil {
		t.Fatal(err)
	}
	if err := s.Consume(); !errors.Is(err, ErrSessionState) {
		t.Fatal(err)
	}

	s.Restart()
	if s.State() != StateFresh || !bytes.Equal(s.Digest(), zero) {
		t.Fatal()
	}
}

func TestExtendOrRejected(t *testing.T) {
	s, err := NewSession(object.AlgSHA256)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Extend(twoBranchTree()); err == nil {
		t.Fatal()
	}
}
