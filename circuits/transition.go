package circuits

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/yourorg/mpnzk/pkg/eddsa"
	"github.com/yourorg/mpnzk/pkg/merkle"
)

// Money pairs a token id with a 64-bit amount.
type Money struct {
	TokenID frontend.Variable
	Amount  frontend.Variable
}

// WithdrawTx is the signed transaction revealed through the batch commitment.
type WithdrawTx struct {
	AccountIndex  frontend.Variable
	TokenIndex    frontend.Variable
	FeeTokenIndex frontend.Variable
	PubKey        eddsa.PublicKey
	Fingerprint   frontend.Variable
	Nonce         frontend.Variable
	Amount        Money
	Fee           Money
	Signature     eddsa.Signature
}

// WithdrawTransition is one batch slot: the transaction plus the snapshot of
// the account it spends from and the inclusion proofs tying that snapshot to
// the running root.
type WithdrawTransition struct {
	Enabled frontend.Variable
	Tx      WithdrawTx

	BeforeTxNonce       frontend.Variable
	BeforeWithdrawNonce frontend.Variable
	BeforeAddress       twistededwards.Point
	BeforeTokenRoot     frontend.Variable
	BeforeTokenBalance  Money
	BeforeFeeBalance    Money

	AccountProof [][3]frontend.Variable
	TokenProof   [][3]frontend.Variable
	FeeProof     [][3]frontend.Variable
}

// verify runs every per-slot check against root and returns the candidate
// next root. The caller decides, by Enabled, whether the candidate replaces
// the running root.
func (t *WithdrawTransition) verify(api frontend.API, curve twistededwards.Curve, h *mimc.MiMC, rc frontend.Rangechecker, root frontend.Variable) frontend.Variable {
	// The snapshot balances must be for the tokens the transaction spends.
	// Holds trivially on the all-zero padding slot.
	api.AssertIsEqual(t.BeforeTokenBalance.TokenID, t.Tx.Amount.TokenID)
	api.AssertIsEqual(t.BeforeFeeBalance.TokenID, t.Tx.Fee.TokenID)

	rc.Check(t.Tx.Amount.Amount, 64)
	rc.Check(t.Tx.Fee.Amount, 64)

	eddsa.AssertOnCurve(api, curve, t.Tx.PubKey.A, t.Enabled)
	eddsa.AssertOnCurve(api, curve, t.Tx.Signature.R, t.Enabled)
	eddsa.AssertOnCurve(api, curve, t.BeforeAddress, t.Enabled)

	h.Reset()
	h.Write(t.Tx.Fingerprint, t.Tx.Nonce)
	msg := h.Sum()
	eddsa.Verify(curve, h, t.Tx.Signature, msg, t.Tx.PubKey, t.Enabled)

	// Spent-token leaf sits in the account's balance tree, then the fee leaf
	// is checked inside the tree that already carries the reduced balance.
	h.Reset()
	h.Write(t.BeforeTokenBalance.TokenID, t.BeforeTokenBalance.Amount)
	tokenLeaf := h.Sum()
	merkle.CheckProof(api, h, t.Enabled, t.Tx.TokenIndex, tokenLeaf, t.TokenProof, t.BeforeTokenRoot)

	h.Reset()
	h.Write(t.BeforeTokenBalance.TokenID, api.Sub(t.BeforeTokenBalance.Amount, t.Tx.Amount.Amount))
	midRoot := merkle.ComputeRoot(api, h, t.Tx.TokenIndex, h.Sum(), t.TokenProof)

	h.Reset()
	h.Write(t.BeforeFeeBalance.TokenID, t.BeforeFeeBalance.Amount)
	feeLeaf := h.Sum()
	merkle.CheckProof(api, h, t.Enabled, t.Tx.FeeTokenIndex, feeLeaf, t.FeeProof, midRoot)

	h.Reset()
	h.Write(t.BeforeFeeBalance.TokenID, api.Sub(t.BeforeFeeBalance.Amount, t.Tx.Fee.Amount))
	finalBalanceRoot := merkle.ComputeRoot(api, h, t.Tx.FeeTokenIndex, h.Sum(), t.FeeProof)

	h.Reset()
	h.Write(t.BeforeTxNonce, t.BeforeWithdrawNonce, t.BeforeAddress.X, t.BeforeAddress.Y, t.BeforeTokenRoot)
	accountLeaf := h.Sum()
	merkle.CheckProof(api, h, t.Enabled, t.Tx.AccountIndex, accountLeaf, t.AccountProof, root)

	// Replay protection. Unconditional, so the padding slot carries nonce 1
	// against an all-zero snapshot.
	newWithdrawNonce := api.Add(t.BeforeWithdrawNonce, 1)
	api.AssertIsEqual(t.Tx.Nonce, newWithdrawNonce)

	h.Reset()
	h.Write(t.BeforeTxNonce, newWithdrawNonce, t.Tx.PubKey.A.X, t.Tx.PubKey.A.Y, finalBalanceRoot)
	return merkle.ComputeRoot(api, h, t.Tx.AccountIndex, h.Sum(), t.AccountProof)
}
