package script

// Opcodes used by P2PKH construction (§4.6). Script execution and the
// broader opcode table are out of scope.
const (
	OP_EQUALVERIFY = 0x88
	OP_HASH160     = 0xa9
	OP_CHECKSIG    = 0xac
	OP_DUP         = 0x76
)
