package keys

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PrivateKey represents a Bitcoin private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GeneratePrivateKey implements new_private_key: draw 32 bytes from the OS
// CSPRNG and rejection-sample against the secp256k1 group order.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// NewPrivateKeyFromBytes creates a private key from raw bytes.
func NewPrivateKeyFromBytes(data []byte) (*PrivateKey, error) {
	if len(data) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(data))
	}
	key := secp256k1.PrivKeyFromBytes(data)
	return &PrivateKey{key: key}, nil
}

// Bytes returns the private key as 32 bytes.
func (pk *PrivateKey) Bytes() []byte {
	return pk.key.Serialize()
}

// PublicKey derives the public key from the private key.
func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// String returns hex representation (debug only - never expose a real key).
func (pk *PrivateKey) String() string {
	return fmt.Sprintf("%x", pk.Bytes())
}
