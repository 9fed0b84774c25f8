package witness

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"

	"github.com/yourorg/mpnzk/pkg/merkle"
)

// Money pairs a token id with a 64-bit amount. An unset Money is the empty
// balance slot.
type Money struct {
	TokenID fr.Element
	Amount  uint64
}

func (m Money) leafHash() fr.Element {
	var amount fr.Element
	amount.SetUint64(m.Amount)
	return merkle.Hash(m.TokenID, amount)
}

// Account is one leaf of the global account tree: an owner key, the two
// nonce counters and a balance tree of Money slots.
type Account struct {
	Index         uint64
	PubKey        eddsa.PublicKey
	TxNonce       uint64
	WithdrawNonce uint64

	slots    []Money
	balances *merkle.Tree
}

func newAccount(index uint64, pub eddsa.PublicKey, balanceDepth int) *Account {
	t := merkle.NewTree(balanceDepth, Money{}.leafHash())
	return &Account{
		Index:    index,
		PubKey:   pub,
		slots:    make([]Money, t.Capacity()),
		balances: t,
	}
}

// Balance returns the Money stored at slot.
func (a *Account) Balance(slot uint64) (Money, error) {
	if slot >= a.balances.Capacity() {
		return Money{}, ErrIndexOutOfRange
	}
	return a.slots[slot], nil
}

// SetBalance overwrites a balance slot. It is how operators credit deposits
// and how fixtures fund test accounts.
func (a *Account) SetBalance(slot uint64, m Money) error {
	if slot >= a.balances.Capacity() {
		return ErrIndexOutOfRange
	}
	a.slots[slot] = m
	a.balances.Update(slot, m.leafHash())
	return nil
}

// BalanceRoot returns the root of the account's balance tree.
func (a *Account) BalanceRoot() fr.Element {
	return a.balances.Root()
}

// LeafHash returns the account's hash as stored in the global tree.
func (a *Account) LeafHash() fr.Element {
	var txNonce, wNonce fr.Element
	txNonce.SetUint64(a.TxNonce)
	wNonce.SetUint64(a.WithdrawNonce)
	return merkle.Hash(txNonce, wNonce, a.PubKey.A.X, a.PubKey.A.Y, a.balances.Root())
}
