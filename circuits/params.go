package circuits

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
)

// Curve returns the curve the circuit is meant to be compiled and
// proven over.
func Curve() ecc.ID {
	return ecc.BN254
}

// Params fixes the circuit shape. All trees are base 4, so a log4 size of k
// means 4^k slots.
type Params struct {
	// BatchLog4Size sets the batch capacity to 4^BatchLog4Size slots.
	BatchLog4Size int
	// AccountLog4Depth is the depth of the global account tree.
	AccountLog4Depth int
	// BalanceLog4Depth is the depth of each account's balance tree.
	BalanceLog4Depth int
}

// BatchSize returns the number of transition slots, enabled or not.
func (p Params) BatchSize() int {
	return 1 << (2 * p.BatchLog4Size)
}

// Validate rejects shapes the circuit cannot be allocated for.
func (p Params) Validate() error {
	if p.BatchLog4Size < 0 {
		return fmt.Errorf("params: negative batch log4 size %d", p.BatchLog4Size)
	}
	if p.AccountLog4Depth < 1 {
		return fmt.Errorf("params: account depth %d, need at least 1", p.AccountLog4Depth)
	}
	if p.BalanceLog4Depth < 1 {
		return fmt.Errorf("params: balance depth %d, need at least 1", p.BalanceLog4Depth)
	}
	return nil
}

// NewWithdrawCircuit allocates a blueprint with every witness slice sized for
// p. The same shape must be used for compilation and assignments.
func NewWithdrawCircuit(p Params) (*WithdrawCircuit, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	c := &WithdrawCircuit{Transitions: make([]WithdrawTransition, p.BatchSize())}
	for i := range c.Transitions {
		t := &c.Transitions[i]
		t.AccountProof = make([][3]frontend.Variable, p.AccountLog4Depth)
		t.TokenProof = make([][3]frontend.Variable, p.BalanceLog4Depth)
		t.FeeProof = make([][3]frontend.Variable, p.BalanceLog4Depth)
	}
	return c, nil
}
