// Package chain implements the chain store (§4.4): an in-memory header DAG
// persisted to a flat consensus-encoded file, plus a LevelDB side store
// holding full transaction data for blocks still inside the DB projector's
// window.
package chain

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/relaynode/btcindexer/pkg/serialization"
	"github.com/relaynode/btcindexer/pkg/storage"
	"github.com/relaynode/btcindexer/pkg/types"
)

// Errors returned by add_header/add_block, matching the two conditions §4.4
// calls out by name.
var (
	ErrDuplicateHash    = errors.New("duplicate hash")
	ErrPrevHashNotFound = errors.New("prev hash not found")
)

// BlockInfo is the result of get_block: just enough to answer height
// queries without loading the full header DAG node.
type BlockInfo struct {
	Height int
}

type node struct {
	header types.BlockHeader
	hash   types.Hash
	height int
}

// Chain is the header DAG plus its tx-data side store. It is owned
// exclusively by the sync controller goroutine after Load returns; peer
// sessions never touch it (§5).
type Chain struct {
	mu sync.Mutex

	byHash map[types.Hash]*node
	tip    *node

	txData *storage.Database
}

// Load deserializes the chain file at path, or initializes an empty
// mainnet chain (just the genesis header) if the file does not exist.
// Corruption on load is fatal: the caller is expected to abort the process,
// per §4.4 and the Open Question decision recorded in DESIGN.md.
func Load(path, txDataPath string) (*Chain, error) {
	db, err := storage.OpenDatabase(txDataPath)
	if err != nil {
		return nil, fmt.Errorf("open tx-data store: %w", err)
	}

	c := &Chain{
		byHash: make(map[types.Hash]*node),
		txData: db,
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		c.initGenesis()
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()

	if err := c.decode(f); err != nil {
		return nil, fmt.Errorf("corrupt chain file %s: %w", path, err)
	}
	return c, nil
}

func (c *Chain) initGenesis() {
	hash, err := serialization.HashBlockHeader(&mainnetGenesisHeader)
	if err != nil {
		panic(fmt.Sprintf("failed to hash genesis header: %v", err))
	}
	g := &node{header: mainnetGenesisHeader, hash: hash, height: 0}
	c.byHash[hash] = g
	c.tip = g
}

// decode reads the flat consensus-encoded chain file: a varint header
// count, then that many 80-byte headers in parent-to-tip order.
func (c *Chain) decode(r io.Reader) error {
	count, err := serialization.ReadVarInt(r)
	if err != nil {
		return err
	}
	if count == 0 {
		return errors.New("empty chain file")
	}

	for i := uint64(0); i < count; i++ {
		header, err := serialization.DeserializeBlockHeader(r)
		if err != nil {
			return err
		}
		hash, err := serialization.HashBlockHeader(header)
		if err != nil {
			return err
		}
		height := 0
		if !header.PrevBlockHash.IsZero() {
			parent, ok := c.byHash[header.PrevBlockHash]
			if !ok {
				return fmt.Errorf("header %s: parent %s not found", hash, header.PrevBlockHash)
			}
			height = parent.height + 1
		}
		n := &node{header: *header, hash: hash, height: height}
		c.byHash[hash] = n
		c.tip = n
	}
	return nil
}

// Save serializes the chain from genesis to the current tip via the
// consensus (80-byte header) encoding.
func (c *Chain) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	chain := c.chainToTipLocked()

	var buf bytes.Buffer
	if err := serialization.WriteVarInt(&buf, uint64(len(chain))); err != nil {
		return err
	}
	for _, n := range chain {
		headerBytes, err := serialization.SerializeBlockHeader(&n.header)
		if err != nil {
			return err
		}
		buf.Write(headerBytes)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chain file: %w", err)
	}
	return os.Rename(tmp, path)
}

// chainToTipLocked walks parent links from tip back to genesis and returns
// them in genesis-first order. Caller must hold c.mu.
func (c *Chain) chainToTipLocked() []*node {
	var reversed []*node
	for n := c.tip; n != nil; {
		reversed = append(reversed, n)
		if n.header.PrevBlockHash.IsZero() {
			break
		}
		parent, ok := c.byHash[n.header.PrevBlockHash]
		if !ok {
			break
		}
		n = parent
	}
	out := make([]*node, len(reversed))
	for i, n := range reversed {
		out[len(reversed)-1-i] = n
	}
	return out
}

// AddHeader inserts a header-only node, extending the chain if its parent
// is known. ErrDuplicateHash is benign (idempotent replay); the best tip is
// simplified to track greatest height rather than greatest cumulative work
// (see DESIGN.md Open Question decision).
func (c *Chain) AddHeader(header types.BlockHeader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash, err := serialization.HashBlockHeader(&header)
	if err != nil {
		return err
	}
	if _, exists := c.byHash[hash]; exists {
		return ErrDuplicateHash
	}

	parent, ok := c.byHash[header.PrevBlockHash]
	if !ok {
		return ErrPrevHashNotFound
	}

	n := &node{header: header, hash: hash, height: parent.height + 1}
	c.byHash[hash] = n
	if n.height > c.tip.height {
		c.tip = n
	}
	return nil
}

// AddBlock stores a full block's transaction data in the side store,
// inserting its header first if it is not already known.
func (c *Chain) AddBlock(block *types.Block) error {
	hash, err := serialization.HashBlockHeader(&block.Header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	_, known := c.byHash[hash]
	c.mu.Unlock()

	if !known {
		if err := c.AddHeader(block.Header); err != nil && err != ErrDuplicateHash {
			return err
		}
	}

	data, err := serialization.SerializeBlock(block)
	if err != nil {
		return err
	}
	if err := c.txData.Put(hash[:], data); err != nil {
		return err
	}
	return nil
}

// RemoveTxData deletes a block's transaction data from the side store; the
// header stays in the in-memory DAG so locator traversal is unaffected.
func (c *Chain) RemoveTxData(hash types.Hash) error {
	return c.txData.Delete(hash[:])
}

// BestTipHash returns the hash of the current best (greatest-height) tip.
func (c *Chain) BestTipHash() types.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip.hash
}

// GetBlock answers a height lookup for a known header; it does not require
// the block's transaction data still be present in the side store.
func (c *Chain) GetBlock(hash types.Hash) (*BlockInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.byHash[hash]
	if !ok {
		return nil, false
	}
	return &BlockInfo{Height: n.height}, true
}

// LocatorHashes returns a logarithmically-sparse list of recent block
// hashes: the last 10 consecutive hashes from the tip, then exponentially
// doubling steps back to and including genesis.
func (c *Chain) LocatorHashes() []types.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()

	var locator []types.Hash
	step := 1
	n := c.tip
	count := 0

	for n != nil {
		locator = append(locator, n.hash)
		if n.header.PrevBlockHash.IsZero() {
			break
		}
		count++
		if count >= 10 {
			step *= 2
		}
		for i := 0; i < step; i++ {
			parent, ok := c.byHash[n.header.PrevBlockHash]
			if !ok {
				return locator
			}
			n = parent
			if n.header.PrevBlockHash.IsZero() {
				break
			}
		}
	}
	return locator
}

// Close releases the tx-data side store.
func (c *Chain) Close() error {
	return c.txData.Close()
}
