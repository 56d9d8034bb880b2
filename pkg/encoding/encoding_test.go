package encoding

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeBase58RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0x09, 0xFF, 0xAB, 0xCD}
	encoded := EncodeBase58(data)

	decoded, err := DecodeBase58(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, data) {
		t.Errorf("base58 round-trip mismatch: got %x, want %x", decoded, data)
	}
}

func TestDecodeBase58RejectsInvalidCharacters(t *testing.T) {
	// '0', 'O', 'I', 'l' are excluded from the Bitcoin alphabet.
	if _, err := DecodeBase58("0OIl"); err != ErrInvalidBase58 {
		t.Errorf("expected ErrInvalidBase58, got %v", err)
	}
}

func TestEncodeDecodeBase58CheckRoundTrip(t *testing.T) {
	version := byte(0x00)
	payload := []byte{0x62, 0xe9, 0x07, 0xb1, 0x5c, 0xbf, 0x27, 0xd5, 0x42, 0x53,
		0x99, 0xeb, 0xf6, 0xf0, 0xfb, 0x50, 0xeb, 0xb8, 0x8f, 0x18}

	encoded := EncodeBase58Check(version, payload)
	const want = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	if encoded != want {
		t.Errorf("EncodeBase58Check: got %s, want %s", encoded, want)
	}

	gotVersion, gotData, err := DecodeBase58Check(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if gotVersion != version {
		t.Errorf("version byte mismatch: got %x, want %x", gotVersion, version)
	}
	if !bytes.Equal(gotData, payload) {
		t.Errorf("payload mismatch: got %x, want %x", gotData, payload)
	}
}

func TestDecodeBase58CheckDetectsCorruption(t *testing.T) {
	encoded := EncodeBase58Check(0x00, []byte{1, 2, 3, 4, 5})

	corrupted := []byte(encoded)
	if corrupted[0] == 'a' {
		corrupted[0] = 'b'
	} else {
		corrupted[0] = 'a'
	}

	if _, _, err := DecodeBase58Check(string(corrupted)); err == nil {
		t.Error("expected checksum mismatch on a corrupted address")
	}
}
