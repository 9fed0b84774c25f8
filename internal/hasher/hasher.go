package hasher

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// New returns the in-circuit MiMC instance shared by every gadget in this
// module. Its native twin is gnark-crypto's fr/mimc.
func New(api frontend.API) *mimc.MiMC {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		panic(err)
	}
	return &h
}
