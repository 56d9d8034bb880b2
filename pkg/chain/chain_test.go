package chain

import (
	"path/filepath"
	"testing"

	"github.com/relaynode/btcindexer/pkg/serialization"
	"github.com/relaynode/btcindexer/pkg/types"
)

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	dir := t.TempDir()
	c, err := Load(filepath.Join(dir, "chain.dat"), filepath.Join(dir, "txdata"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLoadInitializesGenesis(t *testing.T) {
	c := newTestChain(t)

	tip := c.BestTipHash()
	genesisHash, err := serialization.HashBlockHeader(&mainnetGenesisHeader)
	if err != nil {
		t.Fatal(err)
	}
	if tip != genesisHash {
		t.Errorf("expected tip to be genesis hash %s, got %s", genesisHash, tip)
	}

	info, ok := c.GetBlock(genesisHash)
	if !ok || info.Height != 0 {
		t.Errorf("expected genesis at height 0, got %+v ok=%v", info, ok)
	}
}

func childHeader(t *testing.T, parent types.Hash, nonce uint32) types.BlockHeader {
	t.Helper()
	return types.BlockHeader{
		Version:       1,
		PrevBlockHash: parent,
		MerkleRoot:    types.Hash{byte(nonce)},
		Timestamp:     1231006505 + nonce,
		Bits:          0x1d00ffff,
		Nonce:         nonce,
	}
}

func TestAddHeaderExtendsTipAndDetectsDuplicate(t *testing.T) {
	c := newTestChain(t)
	genesisHash := c.BestTipHash()

	h1 := childHeader(t, genesisHash, 1)
	if err := c.AddHeader(h1); err != nil {
		t.Fatalf("add_header: %v", err)
	}

	h1Hash, _ := serialization.HashBlockHeader(&h1)
	if c.BestTipHash() != h1Hash {
		t.Error("tip did not advance to the new header")
	}

	if err := c.AddHeader(h1); err != ErrDuplicateHash {
		t.Errorf("expected ErrDuplicateHash on replay, got %v", err)
	}

	orphan := childHeader(t, types.Hash{0xFF}, 2)
	if err := c.AddHeader(orphan); err != ErrPrevHashNotFound {
		t.Errorf("expected ErrPrevHashNotFound for orphan header, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	chainFile := filepath.Join(dir, "chain.dat")

	c, err := Load(chainFile, filepath.Join(dir, "txdata"))
	if err != nil {
		t.Fatal(err)
	}
	genesisHash := c.BestTipHash()

	h1 := childHeader(t, genesisHash, 1)
	if err := c.AddHeader(h1); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(chainFile); err != nil {
		t.Fatal(err)
	}
	c.Close()

	reloaded, err := Load(chainFile, filepath.Join(dir, "txdata2"))
	if err != nil {
		t.Fatal(err)
	}
	defer reloaded.Close()

	h1Hash, _ := serialization.HashBlockHeader(&h1)
	if reloaded.BestTipHash() != h1Hash {
		t.Errorf("reloaded tip %s does not match saved tip %s", reloaded.BestTipHash(), h1Hash)
	}
}

func TestLocatorHashesIncludesTipAndGenesis(t *testing.T) {
	c := newTestChain(t)
	tip := c.BestTipHash()
	for i := uint32(1); i <= 15; i++ {
		h := childHeader(t, tip, i)
		if err := c.AddHeader(h); err != nil {
			t.Fatal(err)
		}
		tip, _ = serialization.HashBlockHeader(&h)
	}

	locator := c.LocatorHashes()
	if len(locator) == 0 {
		t.Fatal("expected non-empty locator")
	}
	if locator[0] != c.BestTipHash() {
		t.Error("locator should start at the current tip")
	}

	genesisHash, _ := serialization.HashBlockHeader(&mainnetGenesisHeader)
	found := false
	for _, h := range locator {
		if h == genesisHash {
			found = true
		}
	}
	if !found {
		t.Error("locator should always terminate at genesis")
	}
}

func TestRemoveTxData(t *testing.T) {
	c := newTestChain(t)
	genesisHash := c.BestTipHash()
	h1 := childHeader(t, genesisHash, 1)

	block := &types.Block{Header: h1}
	if err := c.AddBlock(block); err != nil {
		t.Fatal(err)
	}

	h1Hash, _ := serialization.HashBlockHeader(&h1)
	if err := c.RemoveTxData(h1Hash); err != nil {
		t.Fatal(err)
	}

	// Header stays in the DAG even after tx data is pruned.
	if _, ok := c.GetBlock(h1Hash); !ok {
		t.Error("expected header to remain after remove_txdata")
	}
}

