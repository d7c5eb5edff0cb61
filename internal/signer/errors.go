package signer

import "errors"

var (
	// ErrKeyNotFound means the key file could not be read.
	ErrKeyNotFound = errors.New("signer: key not found")
	// ErrKeyParse means the key file holds no usable private key.
	ErrKeyParse = errors.New("signer: key parse failure")
	// ErrWrongPassphrase means the key is encrypted and the passphrase is missing or wrong.
	ErrWrongPassphrase = errors.New("signer: wrong passphrase")

	// ErrNoKey means Sign was called without a loaded key.
	ErrNoKey = errors.New("signer: no key loaded")
	// ErrBackendFailure wraps any error raised by the crypto backend.
	ErrBackendFailure = errors.New("signer: backend failure")
)
