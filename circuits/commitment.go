package circuits

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/yourorg/mpnzk/pkg/merkle"
)

// buildCommitment reveals the batch's transaction data: one leaf per slot,
// folded through a dense base-4 tree. The root is what the outer protocol
// commits to as aux data, so every field a verifier of the batch needs is
// bound here. Disabled slots contribute a fixed all-zero leaf.
func (c *WithdrawCircuit) buildCommitment(api frontend.API, h *mimc.MiMC) frontend.Variable {
	leaves := make([]frontend.Variable, len(c.Transitions))
	for i := range c.Transitions {
		t := &c.Transitions[i]

		h.Reset()
		h.Write(
			t.Tx.PubKey.A.X, t.Tx.PubKey.A.Y,
			t.Tx.Nonce,
			t.Tx.Signature.R.X, t.Tx.Signature.R.Y, t.Tx.Signature.S,
		)
		calldata := api.Select(t.Enabled, h.Sum(), 0)

		h.Reset()
		h.Write(
			t.Enabled,
			t.Tx.Amount.TokenID, t.Tx.Amount.Amount,
			t.Tx.Fee.TokenID, t.Tx.Fee.Amount,
			t.Tx.Fingerprint,
			calldata,
		)
		leaves[i] = h.Sum()
	}
	return merkle.FoldLeaves(api, h, leaves)
}
