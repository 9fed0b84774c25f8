package merkle

import (
	"github.com/consensys/gnark/frontend"
	stdhash "github.com/consensys/gnark/std/hash"
)

// Proofs are [depth][3] sibling groups, leaf level first. The two low bits of
// the index select the node's position among the four children of each level,
// least significant bits at the leaf level.

// ComputeRoot folds a leaf up through its siblings and returns the resulting
// root. The binary decomposition of index constrains it to 2*depth bits.
func ComputeRoot(api frontend.API, h stdhash.FieldHasher, index frontend.Variable, leaf frontend.Variable, proof [][3]frontend.Variable) frontend.Variable {
	bits := api.ToBinary(index, 2*len(proof))
	cur := leaf
	for i, sibs := range proof {
		b0, b1 := bits[2*i], bits[2*i+1]
		c0 := api.Lookup2(b0, b1, cur, sibs[0], sibs[0], sibs[0])
		c1 := api.Lookup2(b0, b1, sibs[0], cur, sibs[1], sibs[1])
		c2 := api.Lookup2(b0, b1, sibs[1], sibs[1], cur, sibs[2])
		c3 := api.Lookup2(b0, b1, sibs[2], sibs[2], sibs[2], cur)
		h.Reset()
		h.Write(c0, c1, c2, c3)
		cur = h.Sum()
	}
	return cur
}

// CheckProof asserts that leaf sits at index under root. The assertion is
// multiplied by enabled, so a disabled slot may carry a zero-filled proof.
func CheckProof(api frontend.API, h stdhash.FieldHasher, enabled frontend.Variable, index frontend.Variable, leaf frontend.Variable, proof [][3]frontend.Variable, root frontend.Variable) {
	computed := ComputeRoot(api, h, index, leaf, proof)
	api.AssertIsEqual(api.Mul(enabled, api.Sub(computed, root)), 0)
}

// FoldLeaves hashes a dense power-of-four leaf layer down to a single root.
func FoldLeaves(api frontend.API, h stdhash.FieldHasher, leaves []frontend.Variable) frontend.Variable {
	level := leaves
	for len(level) > 1 {
		next := make([]frontend.Variable, len(level)/4)
		for i := range next {
			h.Reset()
			h.Write(level[4*i], level[4*i+1], level[4*i+2], level[4*i+3])
			next[i] = h.Sum()
		}
		level = next
	}
	return level[0]
}
