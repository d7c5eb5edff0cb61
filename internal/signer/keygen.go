package signer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

const (
	KindRSA   = "rsa"
	KindECDSA = "ecdsa"
)

// GenerateKey creates a fresh key. bits applies to RSA only; ECDSA keys use P-256.
func GenerateKey(kind string, bits int) (crypto.Signer, error) {
	switch kind {
	case KindRSA, "":
		if bits == 0 {
			bits = 2048
		}
		return rsa.GenerateKey(rand.Reader, bits)
	case KindECDSA:
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		return nil, fmt.Errorf("unknown key kind %q", kind)
	}
}

// EncodePrivateKeyPEM encodes key as PKCS#1 (RSA) or SEC1 (ECDSA). A non-empty
// passphrase produces a legacy AES-256 Proc-Type encrypted block.
func EncodePrivateKeyPEM(key crypto.Signer, passphrase []byte) ([]byte, error) {
	var (
		blockType string
		der       []byte
		err       error
	)
	switch k := key.(type) {
	case *rsa.PrivateKey:
		blockType = "RSA PRIVATE KEY"
		der = x509.MarshalPKCS1PrivateKey(k)
	case *ecdsa.PrivateKey:
		blockType = "EC PRIVATE KEY"
		der, err = x509.MarshalECPrivateKey(k)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported key type %T", key)
	}

	block := &pem.Block{Type: blockType, Bytes: der}
	if len(passphrase) > 0 {
		//nolint:staticcheck // legacy PEM encryption is what OpenSSL-era tooling reads.
		block, err = x509.EncryptPEMBlock(rand.Reader, blockType, der, passphrase, x509.PEMCipherAES256)
		if err != nil {
			return nil, err
		}
	}
	return pem.EncodeToMemory(block), nil
}

// EncodePublicKeyPEM encodes pub as a PKIX "PUBLIC KEY" block.
func EncodePublicKeyPEM(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// WriteKeyPair writes <name>_private.pem (0600) and <name>_public.pem into dir.
func WriteKeyPair(dir, name string, key crypto.Signer, passphrase []byte) (privPath, pubPath string, err error) {
	privPEM, err := EncodePrivateKeyPEM(key, passphrase)
	if err != nil {
		return "", "", err
	}
	pubPEM, err := EncodePublicKeyPEM(key.Public())
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", err
	}

	privPath = filepath.Join(dir, name+"_private.pem")
	pubPath = filepath.Join(dir, name+"_public.pem")
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return "", "", err
	}
	return privPath, pubPath, nil
}
