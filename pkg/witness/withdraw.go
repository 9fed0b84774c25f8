package witness

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/yourorg/mpnzk/pkg/merkle"
)

// Withdraw is a signed request to move funds out of the network. The
// fingerprint pins the base-ledger payment the operator must perform; the
// signature covers the fingerprint and the nonce.
type Withdraw struct {
	AccountIndex  uint64
	TokenIndex    uint64
	FeeTokenIndex uint64
	PubKey        eddsa.PublicKey
	Fingerprint   fr.Element
	Nonce         uint64
	Amount        Money
	Fee           Money
	Signature     eddsa.Signature
}

// Fingerprint hashes the base-ledger payment a withdrawal settles to. The
// packing mirrors the settlement contract's calldata: recipient, token,
// amount, fee and the block height the batch lands at.
func Fingerprint(recipient common.Address, token fr.Element, amount, fee, height uint64) fr.Element {
	buf := make([]byte, 0, 20+32+8+8+8)
	buf = append(buf, recipient.Bytes()...)
	tokenBytes := token.Bytes()
	buf = append(buf, tokenBytes[:]...)
	buf = binary.BigEndian.AppendUint64(buf, amount)
	buf = binary.BigEndian.AppendUint64(buf, fee)
	buf = binary.BigEndian.AppendUint64(buf, height)

	var out fr.Element
	out.SetBytes(crypto.Keccak256(buf))
	return out
}

// MsgHash returns the field element the withdrawal's signature covers.
func (w *Withdraw) MsgHash() fr.Element {
	var nonce fr.Element
	nonce.SetUint64(w.Nonce)
	return merkle.Hash(w.Fingerprint, nonce)
}

// Sign fills in PubKey and Signature using priv.
func (w *Withdraw) Sign(priv *eddsa.PrivateKey) error {
	w.PubKey = priv.PublicKey
	msgHash := w.MsgHash()
	msg := msgHash.Bytes()
	sigBin, err := priv.Sign(msg[:], mimc.NewMiMC())
	if err != nil {
		return err
	}
	_, err = w.Signature.SetBytes(sigBin)
	return err
}

// verifySignature checks Signature against PubKey.
func (w *Withdraw) verifySignature() (bool, error) {
	msgHash := w.MsgHash()
	msg := msgHash.Bytes()
	return w.PubKey.Verify(w.Signature.Bytes(), msg[:], mimc.NewMiMC())
}
