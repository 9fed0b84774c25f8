package witness

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	backendwitness "github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"

	"github.com/yourorg/mpnzk/circuits"
	"github.com/yourorg/mpnzk/pkg/eddsa"
	"github.com/yourorg/mpnzk/pkg/merkle"
)

// PublicInputs is the JSON form of the circuit's public column, in proving
// order. Field elements are decimal strings.
type PublicInputs struct {
	Height    uint64 `json:"height"`
	State     string `json:"state"`
	AuxData   string `json:"auxData"`
	NextState string `json:"nextState"`
}

// Bundle is everything a prover run needs: the blueprint to compile, the full
// assignment, its serialized witness and the public inputs to publish.
type Bundle struct {
	Blueprint  *circuits.WithdrawCircuit
	Assignment *circuits.WithdrawCircuit
	Full       backendwitness.Witness
	Public     PublicInputs
}

// Builder accumulates withdrawals against a State and assembles the batch
// witness. Each Add mutates the state, so transitions chain in call order.
type Builder struct {
	state       *State
	height      uint64
	prevRoot    fr.Element
	transitions []*Transition
}

// NewBuilder starts a batch at the state's current root, to land at the
// given base-ledger height.
func NewBuilder(state *State, height uint64) *Builder {
	return &Builder{
		state:    state,
		height:   height,
		prevRoot: state.Root(),
	}
}

// Add validates and applies one withdrawal. The state stays untouched when an
// error is returned.
func (b *Builder) Add(w Withdraw) error {
	if len(b.transitions) == b.state.params.BatchSize() {
		return ErrBatchFull
	}
	t, err := b.state.ApplyWithdraw(w)
	if err != nil {
		return err
	}
	b.transitions = append(b.transitions, t)
	return nil
}

// Build pads the batch to capacity, derives the aux-data commitment and the
// final root, and returns the witness bundle.
func (b *Builder) Build() (*Bundle, error) {
	return Assemble(b.state.params, b.height, b.prevRoot, b.state.Root(), b.transitions)
}

// Assemble bundles prepared transitions directly. Most callers want Builder,
// which keeps the transitions consistent with a live State; Assemble is for
// replaying recorded batches.
func Assemble(params circuits.Params, height uint64, prevRoot, nextRoot fr.Element, transitions []*Transition) (*Bundle, error) {
	if len(transitions) > params.BatchSize() {
		return nil, ErrBatchFull
	}

	padded := make([]*Transition, params.BatchSize())
	copy(padded, transitions)
	for i := len(transitions); i < len(padded); i++ {
		padded[i] = DisabledTransition(params)
	}

	aux, err := Commitment(padded)
	if err != nil {
		return nil, fmt.Errorf("computing aux data: %w", err)
	}

	blueprint, err := circuits.NewWithdrawCircuit(params)
	if err != nil {
		return nil, err
	}

	assignment := &circuits.WithdrawCircuit{
		Height:      height,
		State:       prevRoot,
		AuxData:     aux,
		NextState:   nextRoot,
		Transitions: make([]circuits.WithdrawTransition, len(padded)),
	}
	for i, t := range padded {
		assignment.Transitions[i] = transitionAssignment(t)
	}

	full, err := frontend.NewWitness(assignment, circuits.Curve().ScalarField())
	if err != nil {
		return nil, fmt.Errorf("building witness: %w", err)
	}

	return &Bundle{
		Blueprint:  blueprint,
		Assignment: assignment,
		Full:       full,
		Public: PublicInputs{
			Height:    height,
			State:     prevRoot.String(),
			AuxData:   aux.String(),
			NextState: nextRoot.String(),
		},
	}, nil
}

// DisabledTransition returns the canonical padding slot: everything zero
// except the transaction nonce, which the unconditional nonce constraint
// forces to one.
func DisabledTransition(params circuits.Params) *Transition {
	return &Transition{
		Tx:           Withdraw{Nonce: 1},
		AccountProof: make([][3]fr.Element, params.AccountLog4Depth),
		TokenProof:   make([][3]fr.Element, params.BalanceLog4Depth),
		FeeProof:     make([][3]fr.Element, params.BalanceLog4Depth),
	}
}

// Commitment mirrors the circuit's aux-data builder over native transitions.
// The batch length must be a power of four.
func Commitment(transitions []*Transition) (fr.Element, error) {
	leaves := make([]fr.Element, len(transitions))
	for i, t := range transitions {
		var enabled, calldata, amount, fee fr.Element
		if t.Enabled {
			enabled.SetOne()
			amount.SetUint64(t.Tx.Amount.Amount)
			fee.SetUint64(t.Tx.Fee.Amount)

			var nonce, s fr.Element
			nonce.SetUint64(t.Tx.Nonce)
			s.SetBytes(t.Tx.Signature.S[:])
			calldata = merkle.Hash(
				t.Tx.PubKey.A.X, t.Tx.PubKey.A.Y,
				nonce,
				t.Tx.Signature.R.X, t.Tx.Signature.R.Y, s,
			)
		}
		leaves[i] = merkle.Hash(
			enabled,
			t.Tx.Amount.TokenID, amount,
			t.Tx.Fee.TokenID, fee,
			t.Tx.Fingerprint,
			calldata,
		)
	}
	return merkle.RootOf(leaves)
}

func transitionAssignment(t *Transition) circuits.WithdrawTransition {
	out := circuits.WithdrawTransition{
		Enabled: boolToVar(t.Enabled),
		Tx: circuits.WithdrawTx{
			AccountIndex:  t.Tx.AccountIndex,
			TokenIndex:    t.Tx.TokenIndex,
			FeeTokenIndex: t.Tx.FeeTokenIndex,
			PubKey:        eddsa.NewPublicKey(t.Tx.PubKey),
			Fingerprint:   t.Tx.Fingerprint,
			Nonce:         t.Tx.Nonce,
			Amount: circuits.Money{
				TokenID: t.Tx.Amount.TokenID,
				Amount:  t.Tx.Amount.Amount,
			},
			Fee: circuits.Money{
				TokenID: t.Tx.Fee.TokenID,
				Amount:  t.Tx.Fee.Amount,
			},
			Signature: eddsa.NewSignature(t.Tx.Signature),
		},
		BeforeTxNonce:       t.BeforeTxNonce,
		BeforeWithdrawNonce: t.BeforeWithdrawNonce,
		BeforeTokenRoot:     t.BeforeTokenRoot,
		BeforeTokenBalance: circuits.Money{
			TokenID: t.BeforeTokenBalance.TokenID,
			Amount:  t.BeforeTokenBalance.Amount,
		},
		BeforeFeeBalance: circuits.Money{
			TokenID: t.BeforeFeeBalance.TokenID,
			Amount:  t.BeforeFeeBalance.Amount,
		},
		AccountProof: proofAssignment(t.AccountProof),
		TokenProof:   proofAssignment(t.TokenProof),
		FeeProof:     proofAssignment(t.FeeProof),
	}
	out.BeforeAddress.X = t.BeforeAddress.X
	out.BeforeAddress.Y = t.BeforeAddress.Y
	return out
}

func proofAssignment(proof [][3]fr.Element) [][3]frontend.Variable {
	out := make([][3]frontend.Variable, len(proof))
	for i := range proof {
		for j := 0; j < 3; j++ {
			out[i][j] = proof[i][j]
		}
	}
	return out
}

func boolToVar(b bool) frontend.Variable {
	if b {
		return 1
	}
	return 0
}
