package ballot

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// envelope is the plaintext that gets sealed under the election public
// key. The random nonce makes identical choices produce distinct
// ciphertexts.
type envelope struct {
	CandidateID string `cbor:"candidate_id"`
	Nonce       []byte `cbor:"nonce"`
}

const nonceSize = 16

// SealChoice encrypts a candidate choice under the election public key.
func SealChoice(pub *rsa.PublicKey, candidateID string) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	plaintext, err := cbor.Marshal(envelope{CandidateID: candidateID, Nonce: nonce})
	if err != nil {
		return nil, fmt.Errorf("encoding ballot envelope: %w", err)
	}

	encrypted, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("sealing ballot: %w", err)
	}
	return encrypted, nil
}

// OpenChoice decrypts a sealed ballot and returns the candidate ID.
// Only the tally engine calls this, under keyring-scoped access.
func OpenChoice(priv *rsa.PrivateKey, encrypted []byte) (string, error) {
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, encrypted, nil)
	if err != nil {
		return "", fmt.Errorf("opening ballot: %w", err)
	}

	var env envelope
	if err := cbor.Unmarshal(plaintext, &env); err != nil {
		return "", fmt.Errorf("decoding ballot envelope: %w", err)
	}
	return env.CandidateID, nil
}

// ReceiptHash binds the vote ID to the sealed payload with a server-side
// salt, so receipts cannot be forged from public data alone.
func ReceiptHash(voteID string, encrypted []byte, salt string) string {
	h := sha256.New()
	h.Write([]byte(voteID))
	h.Write(encrypted)
	h.Write([]byte(salt))
	return hex.EncodeToString(h.Sum(nil))
}

// ReceiptEqual compares two receipt hashes in constant time.
func ReceiptEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
