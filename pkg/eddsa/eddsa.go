package eddsa

import (
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	stdhash "github.com/consensys/gnark/std/hash"

	gceddsa "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
)

// PublicKey is a Baby Jubjub point in circuit form.
type PublicKey struct {
	A twistededwards.Point
}

// Signature is an EdDSA signature in circuit form: the nonce point R and the
// scalar S.
type Signature struct {
	R twistededwards.Point
	S frontend.Variable
}

// NewCurve instantiates the Baby Jubjub arithmetic used by Verify.
func NewCurve(api frontend.API) (twistededwards.Curve, error) {
	return twistededwards.NewEdCurve(api, tedwards.BN254)
}

// AssertOnCurve checks a*x^2 + y^2 == 1 + d*x^2*y^2 when enabled is set.
// Unlike the curve's own AssertIsOnCurve it can be skipped per slot, which a
// zero-filled padding point needs since (0, 0) is not on the curve.
func AssertOnCurve(api frontend.API, curve twistededwards.Curve, p twistededwards.Point, enabled frontend.Variable) {
	params := curve.Params()
	xx := api.Mul(p.X, p.X)
	yy := api.Mul(p.Y, p.Y)
	lhs := api.Add(api.Mul(xx, params.A), yy)
	rhs := api.Add(api.Mul(params.D, xx, yy), 1)
	api.AssertIsEqual(api.Mul(enabled, api.Sub(lhs, rhs)), 0)
}

// Verify checks the MiMC-EdDSA equation [S]G == R + [H(R, A, msg)]A, cleared
// of the cofactor, when enabled is set. Scalar-mul inputs are first swapped
// for trivially valid ones on disabled slots so the curve ops never see a
// zero point; the final equality is the only thing gated.
func Verify(curve twistededwards.Curve, h stdhash.FieldHasher, sig Signature, msg frontend.Variable, pub PublicKey, enabled frontend.Variable) {
	api := curve.API()
	params := curve.Params()
	base := twistededwards.Point{X: params.Base[0], Y: params.Base[1]}

	a := selectPoint(api, enabled, pub.A, base)
	r := selectPoint(api, enabled, sig.R, base)
	s := api.Select(enabled, sig.S, 1)

	h.Reset()
	h.Write(r.X, r.Y, a.X, a.Y, msg)
	hram := h.Sum()

	lhs := curve.ScalarMul(base, s)
	rhs := curve.Add(curve.ScalarMul(a, hram), r)

	diff := curve.Add(lhs, curve.Neg(rhs))
	for c := new(big.Int).Set(params.Cofactor); c.BitLen() > 1; c.Rsh(c, 1) {
		diff = curve.Double(diff)
	}
	api.AssertIsEqual(api.Mul(enabled, diff.X), 0)
	api.AssertIsEqual(api.Mul(enabled, api.Sub(diff.Y, 1)), 0)
}

func selectPoint(api frontend.API, b frontend.Variable, p, q twistededwards.Point) twistededwards.Point {
	return twistededwards.Point{
		X: api.Select(b, p.X, q.X),
		Y: api.Select(b, p.Y, q.Y),
	}
}

// NewPublicKey lifts a native public key into circuit form.
func NewPublicKey(pk gceddsa.PublicKey) PublicKey {
	return PublicKey{A: twistededwards.Point{X: pk.A.X, Y: pk.A.Y}}
}

// NewSignature lifts a native signature into circuit form. S is interpreted
// as a big-endian scalar, matching Signature.Bytes.
func NewSignature(sig gceddsa.Signature) Signature {
	return Signature{
		R: twistededwards.Point{X: sig.R.X, Y: sig.R.Y},
		S: new(big.Int).SetBytes(sig.S[:]),
	}
}
