package types

// TxInput represents where coins come from
type TxInput struct {
	PrevTxHash      Hash   // Which transaction created these coins?
	OutputIndex     uint32 // Which output in that transaction?
	SignatureScript []byte // Proof you can spend (signature + pubkey)
	Sequence        uint32 // For timelock features (usually 0xFFFFFFFF)
}

// TxOutput represents where coins go
type TxOutput struct {
	Value        int64  // Amount in satoshis (1 BTC = 100,000,000 satoshis)
	PubKeyScript []byte // Conditions to spend (usually "pay to this address")
}

// Transaction is a value transfer
type Transaction struct {
	Version  int32      // Protocol version
	Inputs   []TxInput  // Where coins come from
	Outputs  []TxOutput // Where coins go
	LockTime uint32     // When tx becomes valid (0 = immediately)
}
