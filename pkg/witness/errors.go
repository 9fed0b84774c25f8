package witness

import "errors"

var (
	// ErrNonExistingAccount is returned when a withdrawal spends from an
	// account index that was never created.
	ErrNonExistingAccount = errors.New("the account does not exist")

	// ErrAccountExists is returned when creating an account at an occupied
	// index.
	ErrAccountExists = errors.New("the account index is already in use")

	// ErrIndexOutOfRange is returned when an account or balance-slot index
	// does not fit the tree it addresses.
	ErrIndexOutOfRange = errors.New("index outside the tree capacity")

	// ErrTokenMismatch is returned when a withdrawal names a token id that
	// differs from the one stored at the balance slot it spends.
	ErrTokenMismatch = errors.New("token id does not match the balance slot")

	// ErrNonce is returned when the transaction nonce is not the account's
	// withdraw nonce plus one.
	ErrNonce = errors.New("invalid withdraw nonce")

	// ErrAmountTooHigh is returned when a balance slot cannot cover the
	// amount or fee drawn from it.
	ErrAmountTooHigh = errors.New("amount or fee exceeds the slot balance")

	// ErrWrongSignature is returned when the transaction signature does not
	// verify against its public key.
	ErrWrongSignature = errors.New("invalid signature")

	// ErrAddressMismatch is returned when the signing key is not the
	// account's address.
	ErrAddressMismatch = errors.New("public key does not match the account address")

	// ErrBatchFull is returned when adding a withdrawal to a builder that
	// already holds a full batch.
	ErrBatchFull = errors.New("the batch is full")
)
