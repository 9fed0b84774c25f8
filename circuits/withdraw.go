package circuits

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/rangecheck"

	"github.com/yourorg/mpnzk/internal/hasher"
	"github.com/yourorg/mpnzk/pkg/eddsa"
)

// WithdrawCircuit proves that a batch of withdrawals moves the network state
// commitment from State to NextState, and that AuxData commits to exactly the
// transactions applied. Public input order is fixed by field order below.
type WithdrawCircuit struct {
	Height    frontend.Variable `gnark:",public"`
	State     frontend.Variable `gnark:",public"`
	AuxData   frontend.Variable `gnark:",public"`
	NextState frontend.Variable `gnark:",public"`

	Transitions []WithdrawTransition
}

// Define declares the constraints. Shape errors (batch size not a power of
// four, ragged proof depths) surface here, at compile time.
func (c *WithdrawCircuit) Define(api frontend.API) error {
	if err := c.checkShape(); err != nil {
		return err
	}

	curve, err := eddsa.NewCurve(api)
	if err != nil {
		return err
	}
	h := hasher.New(api)
	rc := rangecheck.New(api)

	// Height is carried for the fingerprints the transactions sign over; it
	// only needs a width bound of its own.
	rc.Check(c.Height, 64)

	api.AssertIsEqual(c.buildCommitment(api, h), c.AuxData)

	root := c.State
	for i := range c.Transitions {
		t := &c.Transitions[i]
		api.AssertIsBoolean(t.Enabled)
		candidate := t.verify(api, curve, h, rc, root)
		root = api.Select(t.Enabled, candidate, root)
	}
	api.AssertIsEqual(root, c.NextState)

	return nil
}

func (c *WithdrawCircuit) checkShape() error {
	n := len(c.Transitions)
	for n > 1 {
		if n%4 != 0 {
			return fmt.Errorf("batch size %d is not a power of four", len(c.Transitions))
		}
		n /= 4
	}
	if n != 1 {
		return fmt.Errorf("batch size %d is not a power of four", len(c.Transitions))
	}
	for i := range c.Transitions {
		t := &c.Transitions[i]
		if len(t.AccountProof) == 0 || len(t.TokenProof) == 0 {
			return fmt.Errorf("transition %d has an empty inclusion proof", i)
		}
		if len(t.AccountProof) != len(c.Transitions[0].AccountProof) ||
			len(t.TokenProof) != len(c.Transitions[0].TokenProof) ||
			len(t.FeeProof) != len(t.TokenProof) {
			return fmt.Errorf("transition %d has a proof depth differing from slot 0", i)
		}
	}
	return nil
}
