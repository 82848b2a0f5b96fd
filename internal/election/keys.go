package election

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// keySize is the RSA modulus size for election keypairs.
const keySize = 2048

var (
	// ErrMalformedKey is returned when a stored key cannot be parsed.
	ErrMalformedKey = errors.New("malformed election key")
)

// GenerateKeypair creates a fresh RSA keypair for an election and returns both
// halves PEM-encoded (PKIX public, PKCS#8 private).
func GenerateKeypair() (publicPEM, privatePEM string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate election keypair: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return publicPEM, privatePEM, nil
}

// ParsePublicKey parses a PEM-encoded RSA public key.
func ParsePublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, ErrMalformedKey
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrMalformedKey
	}
	return rsaPub, nil
}

// parsePrivateKey parses a PEM-encoded PKCS#8 RSA private key.
func parsePrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, ErrMalformedKey
	}
	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	rsaPriv, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrMalformedKey
	}
	return rsaPriv, nil
}

// Keyring grants scoped access to an election's private key. The key is
// fetched and parsed per call, handed to fn, and never cached; it is
// unreachable once fn returns on every exit path including errors.
type Keyring interface {
	WithPrivateKey(electionID string, fn func(*rsa.PrivateKey) error) error
}

// repositoryKeyring is a Keyring that loads private keys from a Repository.
type repositoryKeyring struct {
	repo Repository
}

// NewKeyring creates a Keyring backed by the given repository.
func NewKeyring(repo Repository) Keyring {
	return &repositoryKeyring{repo: repo}
}

// WithPrivateKey loads, parses and passes the election private key to fn.
func (k *repositoryKeyring) WithPrivateKey(electionID string, fn func(*rsa.PrivateKey) error) error {
	pemStr, err := k.repo.PrivateKeyPEM(electionID)
	if err != nil {
		return err
	}
	priv, err := parsePrivateKey(pemStr)
	if err != nil {
		return err
	}
	return fn(priv)
}
