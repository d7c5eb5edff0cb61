package signer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"
)

// LoadKey reads a PEM private key from path. PKCS#1, SEC1, PKCS#8 and OpenSSH
// encodings are accepted; encrypted PKCS#8, legacy Proc-Type encrypted PEM and
// encrypted OpenSSH keys are opened with passphrase. Only RSA and ECDSA keys are usable.
//
// Errors never include key bytes.
func LoadKey(path string, passphrase []byte) (crypto.Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrKeyNotFound, path, err)
	}
	return ParseKey(raw, passphrase)
}

// ParseKey is LoadKey for in-memory PEM bytes.
func ParseKey(pemBytes, passphrase []byte) (crypto.Signer, error) {
	if block, _ := pem.Decode(pemBytes); block != nil && block.Type == "ENCRYPTED PRIVATE KEY" {
		return parseEncryptedPKCS8(block.Bytes, passphrase)
	}

	parsed, err := ssh.ParseRawPrivateKey(pemBytes)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if !errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %v", ErrKeyParse, err)
		}
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("%w: key is encrypted and no passphrase was given", ErrWrongPassphrase)
		}
		parsed, err = ssh.ParseRawPrivateKeyWithPassphrase(pemBytes, passphrase)
		if err != nil {
			if isDecryptFailure(err) {
				return nil, ErrWrongPassphrase
			}
			return nil, fmt.Errorf("%w: %v", ErrKeyParse, err)
		}
	}

	return usableKey(parsed)
}

// parseEncryptedPKCS8 opens the PBES2 "ENCRYPTED PRIVATE KEY" blocks written
// by OpenSSL 3. PBES2 has no integrity check separate from the key itself, so
// any decryption or decoding failure is reported as a wrong passphrase.
func parseEncryptedPKCS8(der, passphrase []byte) (crypto.Signer, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: key is encrypted and no passphrase was given", ErrWrongPassphrase)
	}
	parsed, err := pkcs8.ParsePKCS8PrivateKey(der, passphrase)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return usableKey(parsed)
}

func usableKey(parsed any) (crypto.Signer, error) {
	switch key := parsed.(type) {
	case *rsa.PrivateKey:
		return key, nil
	case *ecdsa.PrivateKey:
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key type %T", ErrKeyParse, parsed)
	}
}

// isDecryptFailure reports whether err comes from decrypting with a bad
// passphrase. Legacy PEM encryption cannot always detect a wrong password, in
// which case the decrypted DER is noise and fails ASN.1 parsing.
func isDecryptFailure(err error) bool {
	if errors.Is(err, x509.IncorrectPasswordError) {
		return true
	}
	var structural asn1.StructuralError
	var syntax asn1.SyntaxError
	return errors.As(err, &structural) || errors.As(err, &syntax)
}
