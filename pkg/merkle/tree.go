package merkle

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// Hash is the native twin of the in-circuit MiMC: each element is written as
// its 32-byte big-endian encoding.
func Hash(values ...fr.Element) fr.Element {
	h := mimc.NewMiMC()
	for i := range values {
		b := values[i].Bytes()
		h.Write(b[:])
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// Tree is a dense base-4 MiMC tree. nodes[0] is the leaf layer, nodes[depth]
// holds the single root. Dense storage keeps Prove and Update trivial; the
// trees this module folds (per-account balances, operator account sets) stay
// small enough for it.
type Tree struct {
	depth int
	nodes [][]fr.Element
}

// NewTree builds a tree of 4^depth leaves, all set to emptyLeaf.
func NewTree(depth int, emptyLeaf fr.Element) *Tree {
	t := &Tree{depth: depth, nodes: make([][]fr.Element, depth+1)}
	width := 1
	for i := depth; i >= 0; i-- {
		t.nodes[i] = make([]fr.Element, width)
		width *= 4
	}
	cur := emptyLeaf
	for i := 0; i <= depth; i++ {
		for j := range t.nodes[i] {
			t.nodes[i][j] = cur
		}
		cur = Hash(cur, cur, cur, cur)
	}
	return t
}

// Depth returns the number of levels between a leaf and the root.
func (t *Tree) Depth() int { return t.depth }

// Capacity returns the number of leaf slots.
func (t *Tree) Capacity() uint64 { return uint64(len(t.nodes[0])) }

// Root returns the current root.
func (t *Tree) Root() fr.Element { return t.nodes[t.depth][0] }

// Leaf returns the leaf stored at index.
func (t *Tree) Leaf(index uint64) fr.Element { return t.nodes[0][index] }

// Update replaces the leaf at index and rehashes its path to the root.
func (t *Tree) Update(index uint64, leaf fr.Element) {
	t.nodes[0][index] = leaf
	pos := index
	for i := 0; i < t.depth; i++ {
		pos >>= 2
		c := t.nodes[i][4*pos : 4*pos+4]
		t.nodes[i+1][pos] = Hash(c[0], c[1], c[2], c[3])
	}
}

// Prove returns the sibling groups for the leaf at index, leaf level first.
func (t *Tree) Prove(index uint64) [][3]fr.Element {
	proof := make([][3]fr.Element, t.depth)
	pos := index
	for i := 0; i < t.depth; i++ {
		self := pos & 3
		k := 0
		for j := uint64(0); j < 4; j++ {
			if j == self {
				continue
			}
			proof[i][k] = t.nodes[i][(pos&^3)+j]
			k++
		}
		pos >>= 2
	}
	return proof
}

// RootOf folds a dense leaf layer without building a Tree. The layer length
// must be a power of four.
func RootOf(leaves []fr.Element) (fr.Element, error) {
	n := len(leaves)
	for n > 1 {
		if n%4 != 0 {
			return fr.Element{}, fmt.Errorf("merkle: %d leaves is not a power of four", len(leaves))
		}
		n /= 4
	}
	if n != 1 {
		return fr.Element{}, fmt.Errorf("merkle: %d leaves is not a power of four", len(leaves))
	}
	level := append([]fr.Element(nil), leaves...)
	for len(level) > 1 {
		next := make([]fr.Element, len(level)/4)
		for i := range next {
			next[i] = Hash(level[4*i], level[4*i+1], level[4*i+2], level[4*i+3])
		}
		level = next
	}
	return level[0], nil
}
