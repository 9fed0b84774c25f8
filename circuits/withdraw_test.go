package circuits_test

import (
	"math/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	gceddsa "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/test"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/mpnzk/circuits"
	"github.com/yourorg/mpnzk/pkg/merkle"
	"github.com/yourorg/mpnzk/pkg/witness"
)

const testHeight = 1200

func testParams() circuits.Params {
	return circuits.Params{BatchLog4Size: 1, AccountLog4Depth: 1, BalanceLog4Depth: 1}
}

func frOf(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

// fundedState seeds account 1 with 100 of token 5 at slot 0 and 50 of
// token 7 at slot 1.
func fundedState(t *testing.T) (*witness.State, *gceddsa.PrivateKey) {
	t.Helper()
	s, err := witness.NewState(testParams())
	require.NoError(t, err)

	priv, err := gceddsa.GenerateKey(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	_, err = s.CreateAccount(1, priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, s.SetBalance(1, 0, witness.Money{TokenID: frOf(5), Amount: 100}))
	require.NoError(t, s.SetBalance(1, 1, witness.Money{TokenID: frOf(7), Amount: 50}))
	return s, priv
}

func signedWithdraw(t *testing.T, s *witness.State, priv *gceddsa.PrivateKey, amount, fee uint64) witness.Withdraw {
	t.Helper()
	acc, ok := s.Account(1)
	require.True(t, ok)

	w := witness.Withdraw{
		AccountIndex:  1,
		TokenIndex:    0,
		FeeTokenIndex: 1,
		Nonce:         acc.WithdrawNonce + 1,
		Amount:        witness.Money{TokenID: frOf(5), Amount: amount},
		Fee:           witness.Money{TokenID: frOf(7), Amount: fee},
	}
	w.Fingerprint = witness.Fingerprint(
		common.HexToAddress("0x00112233445566778899aabbccddeeff00112233"),
		frOf(5), amount, fee, testHeight,
	)
	require.NoError(t, w.Sign(priv))
	return w
}

// foldProof is an independent reimplementation of the root recomputation, so
// circuit and tree are checked against a third party.
func foldProof(index uint64, leaf fr.Element, proof [][3]fr.Element) fr.Element {
	cur := leaf
	for _, sibs := range proof {
		pos := index & 3
		var children [4]fr.Element
		k := 0
		for j := uint64(0); j < 4; j++ {
			if j == pos {
				children[j] = cur
			} else {
				children[j] = sibs[k]
				k++
			}
		}
		cur = merkle.Hash(children[0], children[1], children[2], children[3])
		index >>= 2
	}
	return cur
}

func TestBatchAllDisabled(t *testing.T) {
	s, _ := fundedState(t)
	bundle, err := witness.NewBuilder(s, testHeight).Build()
	require.NoError(t, err)
	require.Equal(t, bundle.Public.State, bundle.Public.NextState)

	assert := test.NewAssert(t)
	assert.CheckCircuit(bundle.Blueprint,
		test.WithValidAssignment(bundle.Assignment),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

func TestBatchSingleWithdraw(t *testing.T) {
	s, priv := fundedState(t)
	b := witness.NewBuilder(s, testHeight)
	require.NoError(t, b.Add(signedWithdraw(t, s, priv, 10, 1)))
	bundle, err := b.Build()
	require.NoError(t, err)

	// recompute the expected next root by hand
	emptyBalanceLeaf := merkle.Hash(frOf(0), frOf(0))
	balanceRoot := merkle.Hash(
		merkle.Hash(frOf(5), frOf(90)),
		merkle.Hash(frOf(7), frOf(49)),
		emptyBalanceLeaf,
		emptyBalanceLeaf,
	)
	emptyBalanceRoot := merkle.Hash(emptyBalanceLeaf, emptyBalanceLeaf, emptyBalanceLeaf, emptyBalanceLeaf)
	emptyAccountLeaf := merkle.Hash(frOf(0), frOf(0), frOf(0), frOf(0), emptyBalanceRoot)
	accountLeaf := merkle.Hash(frOf(0), frOf(1), priv.PublicKey.A.X, priv.PublicKey.A.Y, balanceRoot)
	expected := merkle.Hash(emptyAccountLeaf, accountLeaf, emptyAccountLeaf, emptyAccountLeaf)
	require.Equal(t, expected.String(), bundle.Public.NextState)

	assert := test.NewAssert(t)
	assert.CheckCircuit(bundle.Blueprint,
		test.WithValidAssignment(bundle.Assignment),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

func TestTamperedWitnessFails(t *testing.T) {
	build := func(t *testing.T) *witness.Bundle {
		s, priv := fundedState(t)
		b := witness.NewBuilder(s, testHeight)
		require.NoError(t, b.Add(signedWithdraw(t, s, priv, 10, 1)))
		bundle, err := b.Build()
		require.NoError(t, err)
		return bundle
	}

	t.Run("account proof sibling", func(t *testing.T) {
		assert := test.NewAssert(t)
		bundle := build(t)
		bundle.Assignment.Transitions[0].AccountProof[0][0] = 123
		assert.SolvingFailed(bundle.Blueprint, bundle.Assignment, test.WithCurves(ecc.BN254))
	})

	t.Run("amount", func(t *testing.T) {
		assert := test.NewAssert(t)
		bundle := build(t)
		bundle.Assignment.Transitions[0].Tx.Amount.Amount = 11
		assert.SolvingFailed(bundle.Blueprint, bundle.Assignment, test.WithCurves(ecc.BN254))
	})

	t.Run("token id", func(t *testing.T) {
		assert := test.NewAssert(t)
		bundle := build(t)
		bundle.Assignment.Transitions[0].Tx.Amount.TokenID = 9
		assert.SolvingFailed(bundle.Blueprint, bundle.Assignment, test.WithCurves(ecc.BN254))
	})

	t.Run("signature scalar", func(t *testing.T) {
		assert := test.NewAssert(t)
		bundle := build(t)
		bundle.Assignment.Transitions[0].Tx.Signature.S = 12345
		assert.SolvingFailed(bundle.Blueprint, bundle.Assignment, test.WithCurves(ecc.BN254))
	})

	t.Run("aux data", func(t *testing.T) {
		assert := test.NewAssert(t)
		bundle := build(t)
		var aux fr.Element
		_, err := aux.SetString(bundle.Public.AuxData)
		require.NoError(t, err)
		var one fr.Element
		one.SetOne()
		aux.Add(&aux, &one)
		bundle.Assignment.AuxData = aux
		assert.SolvingFailed(bundle.Blueprint, bundle.Assignment, test.WithCurves(ecc.BN254))
	})

	t.Run("next state", func(t *testing.T) {
		assert := test.NewAssert(t)
		bundle := build(t)
		var next fr.Element
		_, err := next.SetString(bundle.Public.NextState)
		require.NoError(t, err)
		var one fr.Element
		one.SetOne()
		next.Add(&next, &one)
		bundle.Assignment.NextState = next
		assert.SolvingFailed(bundle.Blueprint, bundle.Assignment, test.WithCurves(ecc.BN254))
	})
}

func TestNonceReplayFails(t *testing.T) {
	s, priv := fundedState(t)
	prev := s.Root()

	tr, err := s.ApplyWithdraw(signedWithdraw(t, s, priv, 10, 1))
	require.NoError(t, err)
	next := s.Root()

	// re-sign the same transaction over a nonce that skips ahead; the
	// signature itself is valid, the nonce chain is not
	replayed := tr.Tx
	replayed.Nonce = 2
	require.NoError(t, replayed.Sign(priv))
	tr.Tx = replayed

	bundle, err := witness.Assemble(testParams(), testHeight, prev, next, []*witness.Transition{tr})
	require.NoError(t, err)

	assert := test.NewAssert(t)
	assert.SolvingFailed(bundle.Blueprint, bundle.Assignment, test.WithCurves(ecc.BN254))
}

func TestOrderSensitivity(t *testing.T) {
	s, priv := fundedState(t)
	prev := s.Root()

	t1, err := s.ApplyWithdraw(signedWithdraw(t, s, priv, 10, 1))
	require.NoError(t, err)
	t2, err := s.ApplyWithdraw(signedWithdraw(t, s, priv, 20, 2))
	require.NoError(t, err)
	next := s.Root()

	assert := test.NewAssert(t)

	ordered, err := witness.Assemble(testParams(), testHeight, prev, next, []*witness.Transition{t1, t2})
	require.NoError(t, err)
	assert.SolvingSucceeded(ordered.Blueprint, ordered.Assignment, test.WithCurves(ecc.BN254))

	reversed, err := witness.Assemble(testParams(), testHeight, prev, next, []*witness.Transition{t2, t1})
	require.NoError(t, err)
	assert.SolvingFailed(reversed.Blueprint, reversed.Assignment, test.WithCurves(ecc.BN254))
}

// The balance subtractions are plain field arithmetic: the circuit does not
// re-range-check the results, it relies on the operator refusing to build
// such a witness. Both halves of that contract are pinned here.
func TestOverdraftContract(t *testing.T) {
	s, priv := fundedState(t)

	overdraft := signedWithdraw(t, s, priv, 10, 60) // fee slot holds 50
	_, err := s.ApplyWithdraw(overdraft)
	require.ErrorIs(t, err, witness.ErrAmountTooHigh)

	prev := s.Root()
	tr, err := s.ApplyWithdraw(signedWithdraw(t, s, priv, 10, 1))
	require.NoError(t, err)

	// same slot data, fee bumped past the balance; the signature stays valid
	// since it covers only fingerprint and nonce
	wrapped := tr.Tx
	wrapped.Fee.Amount = 60
	tr.Tx = wrapped

	var feeBalance, fee fr.Element
	feeBalance.SetUint64(50)
	fee.SetUint64(60)
	feeBalance.Sub(&feeBalance, &fee) // wraps around the field modulus

	finalBalanceRoot := foldProof(1, merkle.Hash(frOf(7), feeBalance), tr.FeeProof)
	newAccountLeaf := merkle.Hash(
		frOf(0), frOf(1),
		priv.PublicKey.A.X, priv.PublicKey.A.Y,
		finalBalanceRoot,
	)
	next := foldProof(1, newAccountLeaf, tr.AccountProof)

	bundle, err := witness.Assemble(testParams(), testHeight, prev, next, []*witness.Transition{tr})
	require.NoError(t, err)

	assert := test.NewAssert(t)
	assert.SolvingSucceeded(bundle.Blueprint, bundle.Assignment, test.WithCurves(ecc.BN254))
}

func TestShapeValidation(t *testing.T) {
	_, err := circuits.NewWithdrawCircuit(circuits.Params{BatchLog4Size: -1, AccountLog4Depth: 1, BalanceLog4Depth: 1})
	require.Error(t, err)
	_, err = circuits.NewWithdrawCircuit(circuits.Params{AccountLog4Depth: 0, BalanceLog4Depth: 1})
	require.Error(t, err)

	// a hand-rolled blueprint with a non-power-of-four batch must not compile
	bad := &circuits.WithdrawCircuit{Transitions: make([]circuits.WithdrawTransition, 3)}
	for i := range bad.Transitions {
		bad.Transitions[i].AccountProof = make([][3]frontend.Variable, 1)
		bad.Transitions[i].TokenProof = make([][3]frontend.Variable, 1)
		bad.Transitions[i].FeeProof = make([][3]frontend.Variable, 1)
	}
	_, err = frontend.Compile(circuits.Curve().ScalarField(), r1cs.NewBuilder, bad)
	require.Error(t, err)
}
