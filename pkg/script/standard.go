package script

import (
	"fmt"
)

// P2PKH creates a Pay-to-PubKey-Hash locking script.
// Format: OP_DUP OP_HASH160 <pubKeyHash> OP_EQUALVERIFY OP_CHECKSIG
func P2PKH(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != 20 {
		return nil, fmt.Errorf("pubKeyHash must be 20 bytes, got %d", len(pubKeyHash))
	}

	script := []byte{
		OP_DUP,
		OP_HASH160,
		byte(len(pubKeyHash)), // Push 20 bytes
	}
	script = append(script, pubKeyHash...)
	script = append(script, OP_EQUALVERIFY, OP_CHECKSIG)

	return script, nil
}

// ScanHash160Push implements the projector's approximate address extraction
// (§4.6): scan the script bytes for the first byte equal to 20 (a hash160
// push-length), and return the following 20 bytes. Full script
// classification is out of scope; this is intentionally lax and will match
// inside an unrelated push if one happens to carry the value 20.
func ScanHash160Push(pubKeyScript []byte) ([]byte, bool) {
	for i, b := range pubKeyScript {
		if b == 20 && i+21 <= len(pubKeyScript) {
			return pubKeyScript[i+1 : i+21], true
		}
	}
	return nil, false
}
