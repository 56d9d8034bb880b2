package keys

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/relaynode/btcindexer/pkg/encoding"
)

func TestGeneratePrivateKeyRoundTrip(t *testing.T) {
	pk, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}

	raw := pk.Bytes()
	if len(raw) != 32 {
		t.Fatalf("expected 32-byte private key, got %d", len(raw))
	}

	restored, err := NewPrivateKeyFromBytes(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(restored.Bytes(), raw) {
		t.Error("private key did not round-trip through bytes")
	}
}

func TestAddressFromHashKnownVector(t *testing.T) {
	// Well-known hash160 -> mainnet P2PKH address test vector.
	hash160 := decodeHex(t, "62e907b15cbf27d5425399ebf6f0fb50ebb88f18")
	addr, err := AddressFromHash(hash160, false)
	if err != nil {
		t.Fatal(err)
	}

	const want = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	if addr != want {
		t.Errorf("address_from_hash: got %s, want %s", addr, want)
	}
}

func TestAddressFromPubKeyUsesUncompressedForm(t *testing.T) {
	pk, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	pub := pk.PublicKey()

	addr, err := AddressFromPubKey(pub, false)
	if err != nil {
		t.Fatal(err)
	}

	version, hash, err := encoding.DecodeBase58Check(addr)
	if err != nil {
		t.Fatal(err)
	}
	if version != AddressTypeP2PKH {
		t.Errorf("expected mainnet version byte, got %x", version)
	}
	if !bytes.Equal(hash, pub.Hash160()) {
		t.Error("decoded address hash does not match Hash160()")
	}
}

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
