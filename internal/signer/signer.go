// Package signer signs telemetry payloads with a process-wide private key.
package signer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"
	"sync/atomic"
)

const (
	SchemeRSA   = "RSA-PKCS1v15-SHA256"
	SchemeECDSA = "ECDSA-SHA256"
)

// Signer computes SHA-256 hash-then-sign signatures. It is safe for
// concurrent use; the key is read-only until Close.
type Signer struct {
	key    atomic.Pointer[keyHolder]
	pub    crypto.PublicKey
	scheme string
	rand   io.Reader
}

type keyHolder struct {
	priv crypto.Signer
}

// New wraps an RSA or ECDSA private key.
func New(key crypto.Signer) (*Signer, error) {
	if key == nil {
		return nil, ErrNoKey
	}
	pub := key.Public()
	var scheme string
	switch p := pub.(type) {
	case *rsa.PublicKey:
		scheme = SchemeRSA
	case *ecdsa.PublicKey:
		scheme = SchemeECDSA
		if p.Curve != nil {
			scheme = fmt.Sprintf("ECDSA-%s-SHA256", p.Curve.Params().Name)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported key type %T", ErrKeyParse, pub)
	}

	s := &Signer{pub: pub, scheme: scheme, rand: rand.Reader}
	s.key.Store(&keyHolder{priv: key})
	return s, nil
}

// Load is LoadKey followed by New.
func Load(path string, passphrase []byte) (*Signer, error) {
	key, err := LoadKey(path, passphrase)
	if err != nil {
		return nil, err
	}
	return New(key)
}

// Scheme names the signature scheme, e.g. RSA-PKCS1v15-SHA256.
func (s *Signer) Scheme() string {
	if s == nil {
		return ""
	}
	return s.scheme
}

// Public returns the public half of the key. It stays valid after Close.
func (s *Signer) Public() crypto.PublicKey {
	if s == nil {
		return nil
	}
	return s.pub
}

// Sign returns the signature of sha256(payload). The returned buffer is owned
// by the caller and sized to the backend's signature.
func (s *Signer) Sign(payload []byte) (sig []byte, err error) {
	if s == nil {
		return nil, ErrNoKey
	}
	holder := s.key.Load()
	if holder == nil {
		return nil, ErrNoKey
	}

	defer func() {
		if r := recover(); r != nil {
			sig = nil
			err = fmt.Errorf("%w: panic in %s", ErrBackendFailure, s.scheme)
		}
	}()

	digest := sha256.Sum256(payload)
	sig, err = holder.priv.Sign(s.rand, digest[:], crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	return sig, nil
}

// Close drops the key and zeroes its secret integers. Sign returns ErrNoKey
// afterwards. Callers must stop signing before Close.
func (s *Signer) Close() {
	if s == nil {
		return
	}
	holder := s.key.Swap(nil)
	if holder == nil {
		return
	}
	wipe(holder.priv)
}

// Verify checks sig against payload with the scheme implied by pub.
func Verify(pub crypto.PublicKey, payload, sig []byte) bool {
	digest := sha256.Sum256(payload)
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(k, crypto.SHA256, digest[:], sig) == nil
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(k, digest[:], sig)
	default:
		return false
	}
}
