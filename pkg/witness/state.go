package witness

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"

	"github.com/yourorg/mpnzk/circuits"
	"github.com/yourorg/mpnzk/pkg/merkle"
)

// Transition is one private-witness slot: the transaction, the pre-state
// snapshot of the account it spends from, and the inclusion proofs tying the
// snapshot to the roots the circuit recomputes.
type Transition struct {
	Enabled bool
	Tx      Withdraw

	BeforeTxNonce       uint64
	BeforeWithdrawNonce uint64
	BeforeAddress       twistededwards.PointAffine
	BeforeTokenRoot     fr.Element
	BeforeTokenBalance  Money
	BeforeFeeBalance    Money

	AccountProof [][3]fr.Element
	TokenProof   [][3]fr.Element
	FeeProof     [][3]fr.Element
}

// State is the operator's view of the network: every account with its
// balances, folded into the Merkle root the batch proof opens against.
type State struct {
	params   circuits.Params
	accounts map[uint64]*Account
	tree     *merkle.Tree
}

// NewState builds an empty state for the given shape.
func NewState(params circuits.Params) (*State, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	empty := newAccount(0, eddsa.PublicKey{}, params.BalanceLog4Depth)
	return &State{
		params:   params,
		accounts: make(map[uint64]*Account),
		tree:     merkle.NewTree(params.AccountLog4Depth, empty.LeafHash()),
	}, nil
}

// Params returns the shape the state was built for.
func (s *State) Params() circuits.Params { return s.params }

// Root returns the current state commitment.
func (s *State) Root() fr.Element { return s.tree.Root() }

// Account returns the account at index, if it exists.
func (s *State) Account(index uint64) (*Account, bool) {
	a, ok := s.accounts[index]
	return a, ok
}

// CreateAccount registers a new account at index owned by pub.
func (s *State) CreateAccount(index uint64, pub eddsa.PublicKey) (*Account, error) {
	if index >= s.tree.Capacity() {
		return nil, ErrIndexOutOfRange
	}
	if _, ok := s.accounts[index]; ok {
		return nil, ErrAccountExists
	}
	a := newAccount(index, pub, s.params.BalanceLog4Depth)
	s.accounts[index] = a
	s.tree.Update(index, a.LeafHash())
	return a, nil
}

// SetBalance funds a balance slot of an existing account and refreshes the
// state root.
func (s *State) SetBalance(accountIndex, slot uint64, m Money) error {
	a, ok := s.accounts[accountIndex]
	if !ok {
		return ErrNonExistingAccount
	}
	if err := a.SetBalance(slot, m); err != nil {
		return err
	}
	s.tree.Update(accountIndex, a.LeafHash())
	return nil
}

// ApplyWithdraw validates w against the live state, snapshots everything the
// circuit will open, mutates the trees and returns the transition record.
// On error the state is unchanged.
func (s *State) ApplyWithdraw(w Withdraw) (*Transition, error) {
	a, ok := s.accounts[w.AccountIndex]
	if !ok {
		return nil, ErrNonExistingAccount
	}
	if w.TokenIndex >= a.balances.Capacity() || w.FeeTokenIndex >= a.balances.Capacity() {
		return nil, ErrIndexOutOfRange
	}
	if !w.PubKey.A.X.Equal(&a.PubKey.A.X) || !w.PubKey.A.Y.Equal(&a.PubKey.A.Y) {
		return nil, ErrAddressMismatch
	}
	if w.Nonce != a.WithdrawNonce+1 {
		return nil, ErrNonce
	}

	tokenSlot := a.slots[w.TokenIndex]
	if !tokenSlot.TokenID.Equal(&w.Amount.TokenID) {
		return nil, ErrTokenMismatch
	}
	if tokenSlot.Amount < w.Amount.Amount {
		return nil, ErrAmountTooHigh
	}

	// The fee is drawn after the amount, so a shared slot must cover both.
	feeAfterAmount := tokenSlot
	feeAfterAmount.Amount -= w.Amount.Amount
	if w.FeeTokenIndex != w.TokenIndex {
		feeAfterAmount = a.slots[w.FeeTokenIndex]
	}
	if !feeAfterAmount.TokenID.Equal(&w.Fee.TokenID) {
		return nil, ErrTokenMismatch
	}
	if feeAfterAmount.Amount < w.Fee.Amount {
		return nil, ErrAmountTooHigh
	}

	if ok, err := w.verifySignature(); err != nil || !ok {
		if err != nil {
			return nil, err
		}
		return nil, ErrWrongSignature
	}

	t := &Transition{
		Enabled:             true,
		Tx:                  w,
		BeforeTxNonce:       a.TxNonce,
		BeforeWithdrawNonce: a.WithdrawNonce,
		BeforeAddress:       a.PubKey.A,
		BeforeTokenRoot:     a.balances.Root(),
		BeforeTokenBalance:  tokenSlot,
		AccountProof:        s.tree.Prove(w.AccountIndex),
		TokenProof:          a.balances.Prove(w.TokenIndex),
	}

	// Apply the amount first. The fee snapshot and proof come from the
	// intermediate tree, which is the root chaining the circuit performs.
	spent := tokenSlot
	spent.Amount -= w.Amount.Amount
	a.slots[w.TokenIndex] = spent
	a.balances.Update(w.TokenIndex, spent.leafHash())

	t.BeforeFeeBalance = a.slots[w.FeeTokenIndex]
	t.FeeProof = a.balances.Prove(w.FeeTokenIndex)

	feePaid := a.slots[w.FeeTokenIndex]
	feePaid.Amount -= w.Fee.Amount
	a.slots[w.FeeTokenIndex] = feePaid
	a.balances.Update(w.FeeTokenIndex, feePaid.leafHash())

	a.WithdrawNonce++
	s.tree.Update(w.AccountIndex, a.LeafHash())

	return t, nil
}
