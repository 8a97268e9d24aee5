// Package merkle implements an RFC-6962-style binary Merkle tree: leaf and
// inner-node hashes are domain-separated so that a leaf's hash can never
// collide with an inner node's hash, which is what makes inclusion proofs
// unambiguous. This is the direct descendant of the teacher's
// pkg/merkle/tree.go, corrected to add the domain-separation prefixes the
// teacher's version omitted (it hashed leaves and pairs with the same
// function) and extended with a defined empty-tree root.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

const (
	leafPrefix  = 0x00
	innerPrefix = 0x01
)

var (
	ErrEmptyLeaves  = errors.New("merkle: cannot prove against an empty tree")
	ErrIndexRange   = errors.New("merkle: leaf index out of range")
	ErrInvalidProof = errors.New("merkle: proof malformed")
)

// EmptyRoot is the sentinel root for a tree with zero leaves (spec §4.2).
func EmptyRoot() [32]byte { return sha256.Sum256(nil) }

// LeafHash hashes a single leaf's raw content with RFC-6962 domain
// separation: SHA256(0x00 || data).
func LeafHash(data []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{leafPrefix})
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func innerHash(left, right [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{innerPrefix})
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Tree is an immutable binary Merkle tree built from pre-hashed leaves.
type Tree struct {
	levels [][][32]byte // levels[0] = leaves, levels[last] = {root}
}

// New builds a tree from raw leaf contents, each hashed with LeafHash. An
// empty input yields a tree whose Root is EmptyRoot and which cannot
// produce proofs.
func New(leaves [][]byte) *Tree {
	hashed := make([][32]byte, len(leaves))
	for i, l := range leaves {
		hashed[i] = LeafHash(l)
	}
	return NewFromLeafHashes(hashed)
}

// NewFromLeafHashes builds a tree from already-hashed leaves (used when the
// leaf content itself is a composite, e.g. `rollup_id || root(txs)`, and the
// caller wants control over how that composite is hashed).
func NewFromLeafHashes(leaves [][32]byte) *Tree {
	if len(leaves) == 0 {
		return &Tree{levels: nil}
	}
	level := make([][32]byte, len(leaves))
	copy(level, leaves)
	all := [][][32]byte{level}
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, innerHash(level[i], level[i+1]))
			} else {
				// RFC-6962 does not duplicate odd nodes; it carries the
				// lone node up unchanged to the next level.
				next = append(next, level[i])
			}
		}
		all = append(all, next)
		level = next
	}
	return &Tree{levels: all}
}

// Root returns the 32-byte commitment, or EmptyRoot for a zero-leaf tree.
func (t *Tree) Root() [32]byte {
	if t == nil || len(t.levels) == 0 {
		return EmptyRoot()
	}
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// LeafCount returns the number of leaves the tree was built from.
func (t *Tree) LeafCount() int {
	if t == nil || len(t.levels) == 0 {
		return 0
	}
	return len(t.levels[0])
}

// InclusionProof is (index, sibling path, total leaf count) as named by
// spec §4.2.
type InclusionProof struct {
	Index      int
	Siblings   [][32]byte
	TotalLeafs int
}

// Prove builds an inclusion proof for the leaf at index.
func (t *Tree) Prove(index int) (*InclusionProof, error) {
	if t == nil || len(t.levels) == 0 {
		return nil, ErrEmptyLeaves
	}
	n := len(t.levels[0])
	if index < 0 || index >= n {
		return nil, ErrIndexRange
	}
	proof := &InclusionProof{Index: index, TotalLeafs: n}
	idx := index
	for lvl := 0; lvl < len(t.levels)-1; lvl++ {
		level := t.levels[lvl]
		var sibIdx int
		if idx%2 == 0 {
			sibIdx = idx + 1
		} else {
			sibIdx = idx - 1
		}
		if sibIdx < len(level) {
			proof.Siblings = append(proof.Siblings, level[sibIdx])
		} else {
			// idx was the lone carried-up node at this level: no sibling
			// hash is consumed, and idx maps straight to the same index
			// at the next level.
		}
		idx = idx / 2
	}
	return proof, nil
}

// VerifyLeafHash verifies a proof for an already-hashed leaf against an
// expected root.
func VerifyLeafHash(leaf [32]byte, proof *InclusionProof, root [32]byte) (bool, error) {
	if proof == nil {
		return false, ErrInvalidProof
	}
	if proof.TotalLeafs <= 0 {
		return false, ErrInvalidProof
	}
	if proof.Index < 0 || proof.Index >= proof.TotalLeafs {
		return false, ErrInvalidProof
	}

	cur := leaf
	idx := proof.Index
	levelSize := proof.TotalLeafs
	si := 0
	for levelSize > 1 {
		hasSibling := !(idx%2 == 0 && idx+1 >= levelSize)
		if hasSibling {
			if si >= len(proof.Siblings) {
				return false, ErrInvalidProof
			}
			sib := proof.Siblings[si]
			si++
			if idx%2 == 0 {
				cur = innerHash(cur, sib)
			} else {
				cur = innerHash(sib, cur)
			}
		}
		idx = idx / 2
		levelSize = (levelSize + 1) / 2
	}
	if si != len(proof.Siblings) {
		return false, ErrInvalidProof
	}
	return subtle.ConstantTimeCompare(cur[:], root[:]) == 1, nil
}

// Verify hashes leafData with LeafHash and delegates to VerifyLeafHash; use
// this for leaves that were built with New rather than NewFromLeafHashes.
func Verify(leafData []byte, proof *InclusionProof, root [32]byte) (bool, error) {
	return VerifyLeafHash(LeafHash(leafData), proof, root)
}

// GetLeaf returns the raw (hashed) leaf at index, for diagnostics and tests.
func (t *Tree) GetLeaf(index int) ([32]byte, error) {
	if t == nil || len(t.levels) == 0 {
		return [32]byte{}, ErrEmptyLeaves
	}
	level := t.levels[0]
	if index < 0 || index >= len(level) {
		return [32]byte{}, ErrIndexRange
	}
	return level[index], nil
}

// Equal is a small helper used by callers comparing two roots/hashes.
func Equal(a, b [32]byte) bool { return bytes.Equal(a[:], b[:]) }
