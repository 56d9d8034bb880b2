package chain

import "github.com/relaynode/btcindexer/pkg/types"

// mainnetGenesisHeader is the canonical Bitcoin mainnet genesis block
// header, block #0, mined 2009-01-03.
var mainnetGenesisHeader = types.BlockHeader{
	Version:       1,
	PrevBlockHash: types.Hash{},
	MerkleRoot:    mustHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b").Reverse(),
	Timestamp:     1231006505,
	Bits:          0x1d00ffff,
	Nonce:         2083236893,
}

func mustHash(s string) types.Hash {
	h, err := types.NewHashFromString(s)
	if err != nil {
		panic(err)
	}
	return h
}
