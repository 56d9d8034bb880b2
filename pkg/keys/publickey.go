package keys

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

// PublicKey represents a Bitcoin public key
type PublicKey struct {
	key *secp256k1.PublicKey
}

// Bytes returns serialized public key
func (pub *PublicKey) Bytes(compressed bool) []byte {
	if compressed {
		return pub.key.SerializeCompressed()
	}
	return pub.key.SerializeUncompressed()
}

// Hash160 returns RIPEMD160(SHA256(pubkey)) over the uncompressed (65-byte)
// public key encoding, per address_from_pubkey.
func (pub *PublicKey) Hash160() []byte {
	sha := sha256.Sum256(pub.Bytes(false))

	ripe := ripemd160.New()
	ripe.Write(sha[:])

	return ripe.Sum(nil)
}

// String returns hex representation
func (pub *PublicKey) String() string {
	return fmt.Sprintf("%x", pub.Bytes(true))
}

// IsCompressed reports whether the key's compressed serialization starts
// with 0x02 or 0x03. PublicKey does not record the format it was parsed
// from, so this is always true.
func (pub *PublicKey) IsCompressed() bool {
	// Compressed keys start with 0x02 or 0x03
	serialized := pub.key.SerializeCompressed()
	return serialized[0] == 0x02 || serialized[0] == 0x03
}
