package keys

import (
	"fmt"

	"github.com/relaynode/btcindexer/pkg/encoding"
)

// Address version bytes (mainnet / testnet P2PKH only; P2SH is out of scope).
const (
	AddressTypeP2PKH        byte = 0x00
	AddressTypeTestnetP2PKH byte = 0x6f
)

// Address represents a decoded Bitcoin address.
type Address struct {
	version byte
	hash    []byte // 20-byte hash160
}

// NewAddress creates an address from version and hash.
func NewAddress(version byte, hash []byte) (*Address, error) {
	if len(hash) != 20 {
		return nil, fmt.Errorf("hash must be 20 bytes, got %d", len(hash))
	}
	h := make([]byte, 20)
	copy(h, hash)
	return &Address{version: version, hash: h}, nil
}

// AddressFromHash implements address_from_hash: prepend the network version
// byte and base58check-encode the 20-byte hash160.
func AddressFromHash(hash160 []byte, testnet bool) (string, error) {
	if len(hash160) != 20 {
		return "", fmt.Errorf("hash160 must be 20 bytes, got %d", len(hash160))
	}
	version := AddressTypeP2PKH
	if testnet {
		version = AddressTypeTestnetP2PKH
	}
	return encoding.EncodeBase58Check(version, hash160), nil
}

// AddressFromPubKey implements address_from_pubkey: hash160 the public key,
// then defer to AddressFromHash.
func AddressFromPubKey(pub *PublicKey, testnet bool) (string, error) {
	return AddressFromHash(pub.Hash160(), testnet)
}

// P2PKHAddress creates a mainnet Pay-to-PubKey-Hash address.
func (pub *PublicKey) P2PKHAddress() string {
	addr, _ := AddressFromHash(pub.Hash160(), false)
	return addr
}

// TestnetP2PKHAddress creates a testnet P2PKH address.
func (pub *PublicKey) TestnetP2PKHAddress() string {
	addr, _ := AddressFromHash(pub.Hash160(), true)
	return addr
}

// DecodeAddress decodes a Bitcoin address.
func DecodeAddress(address string) (*Address, error) {
	version, hash, err := encoding.DecodeBase58Check(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}
	if len(hash) != 20 {
		return nil, fmt.Errorf("invalid address hash length: %d", len(hash))
	}
	return &Address{version: version, hash: hash}, nil
}

// String returns the Base58Check encoded address.
func (addr *Address) String() string {
	return encoding.EncodeBase58Check(addr.version, addr.hash)
}

// IsP2PKH reports whether the address is a mainnet or testnet P2PKH address.
func (addr *Address) IsP2PKH() bool {
	return addr.version == AddressTypeP2PKH || addr.version == AddressTypeTestnetP2PKH
}

// Hash returns the 20-byte address hash.
func (addr *Address) Hash() []byte {
	return addr.hash
}

// Version returns the address version byte.
func (addr *Address) Version() byte {
	return addr.version
}
