package witness

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"

	"github.com/yourorg/mpnzk/circuits"
)

// Fixture is a replayable batch description: the shape, the funded accounts
// and the withdrawals to apply, in order. Account keys are derived from the
// given seeds so a fixture is fully self-contained.
type Fixture struct {
	Height           uint64 `json:"height"`
	BatchLog4Size    int    `json:"batchLog4Size"`
	AccountLog4Depth int    `json:"accountLog4Depth"`
	BalanceLog4Depth int    `json:"balanceLog4Depth"`

	Accounts    []FixtureAccount    `json:"accounts"`
	Withdrawals []FixtureWithdrawal `json:"withdrawals"`
}

// FixtureAccount seeds one account. The key pair is derived from Seed.
type FixtureAccount struct {
	Index    uint64           `json:"index"`
	Seed     int64            `json:"seed"`
	Balances []FixtureBalance `json:"balances"`
}

// FixtureBalance funds one balance slot.
type FixtureBalance struct {
	Slot    uint64 `json:"slot"`
	TokenID string `json:"tokenId"`
	Amount  uint64 `json:"amount"`
}

// FixtureWithdrawal names the slots to spend from; token ids and the nonce
// are read off the replayed state.
type FixtureWithdrawal struct {
	Account   uint64 `json:"account"`
	TokenSlot uint64 `json:"tokenSlot"`
	FeeSlot   uint64 `json:"feeSlot"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Fee       uint64 `json:"fee"`
}

// LoadFixture reads a fixture from a JSON file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshaling fixture: %w", err)
	}
	return &f, nil
}

// Replay builds the state, signs and applies every withdrawal, and returns
// the resulting witness bundle.
func (f *Fixture) Replay() (*Bundle, error) {
	params := circuits.Params{
		BatchLog4Size:    f.BatchLog4Size,
		AccountLog4Depth: f.AccountLog4Depth,
		BalanceLog4Depth: f.BalanceLog4Depth,
	}
	state, err := NewState(params)
	if err != nil {
		return nil, err
	}

	keys := make(map[uint64]*eddsa.PrivateKey, len(f.Accounts))
	for _, a := range f.Accounts {
		priv, err := eddsa.GenerateKey(rand.New(rand.NewSource(a.Seed)))
		if err != nil {
			return nil, err
		}
		keys[a.Index] = priv
		if _, err := state.CreateAccount(a.Index, priv.PublicKey); err != nil {
			return nil, fmt.Errorf("account %d: %w", a.Index, err)
		}
		for _, b := range a.Balances {
			var token fr.Element
			if _, err := token.SetString(b.TokenID); err != nil {
				return nil, fmt.Errorf("account %d slot %d: %w", a.Index, b.Slot, err)
			}
			if err := state.SetBalance(a.Index, b.Slot, Money{TokenID: token, Amount: b.Amount}); err != nil {
				return nil, fmt.Errorf("account %d slot %d: %w", a.Index, b.Slot, err)
			}
		}
	}

	builder := NewBuilder(state, f.Height)
	for i, wd := range f.Withdrawals {
		acc, ok := state.Account(wd.Account)
		if !ok {
			return nil, fmt.Errorf("withdrawal %d: %w", i, ErrNonExistingAccount)
		}
		tokenSlot, err := acc.Balance(wd.TokenSlot)
		if err != nil {
			return nil, fmt.Errorf("withdrawal %d: %w", i, err)
		}
		feeSlot, err := acc.Balance(wd.FeeSlot)
		if err != nil {
			return nil, fmt.Errorf("withdrawal %d: %w", i, err)
		}

		w := Withdraw{
			AccountIndex:  wd.Account,
			TokenIndex:    wd.TokenSlot,
			FeeTokenIndex: wd.FeeSlot,
			Nonce:         acc.WithdrawNonce + 1,
			Amount:        Money{TokenID: tokenSlot.TokenID, Amount: wd.Amount},
			Fee:           Money{TokenID: feeSlot.TokenID, Amount: wd.Fee},
		}
		w.Fingerprint = Fingerprint(
			common.HexToAddress(wd.Recipient),
			tokenSlot.TokenID, wd.Amount, wd.Fee, f.Height,
		)
		if err := w.Sign(keys[wd.Account]); err != nil {
			return nil, fmt.Errorf("withdrawal %d: %w", i, err)
		}
		if err := builder.Add(w); err != nil {
			return nil, fmt.Errorf("withdrawal %d: %w", i, err)
		}
	}

	return builder.Build()
}
