// Package projector implements the DB projector (§4.6): the single
// transactional Update(block) operation that materializes a bounded
// window of recent blocks into six relational tables, pruning the oldest
// block once the window overflows.
package projector

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/relaynode/btcindexer/pkg/keys"
	"github.com/relaynode/btcindexer/pkg/monitoring"
	"github.com/relaynode/btcindexer/pkg/script"
	"github.com/relaynode/btcindexer/pkg/serialization"
	"github.com/relaynode/btcindexer/pkg/types"
)

// ChainPruner is the subset of pkg/chain.Chain the projector needs: it
// drops a block's tx data from the side store once the block leaves the
// window.
type ChainPruner interface {
	RemoveTxData(hash types.Hash) error
}

// Projector holds the sqlite connection, the DbWindow, and the chain store
// used to prune tx-data for blocks leaving the window.
type Projector struct {
	db          *sql.DB
	window      *dbWindow
	chain       ChainPruner
	sidecarPath string
	maxBlocks   int
	log         *monitoring.Logger
}

// New opens (or creates) the sqlite database at dsn, bootstraps the schema,
// and loads the DbWindow from its sidecar file.
func New(dsn, sidecarPath string, maxBlocks int, chainStore ChainPruner) (*Projector, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// database/sql + modernc.org/sqlite: no connection pooling in this
	// iteration (§5) — the projector acquires a connection per Update.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	window, err := loadWindow(sidecarPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load db window: %w", err)
	}

	return &Projector{
		db:          db,
		window:      window,
		chain:       chainStore,
		sidecarPath: sidecarPath,
		maxBlocks:   maxBlocks,
		log:         monitoring.NewLogger("info").WithField("component", "projector"),
	}, nil
}

// Update implements the §4.6 contract as a single sqlite transaction.
func (p *Projector) Update(block *types.Block) error {
	hash, err := serialization.HashBlockHeader(&block.Header)
	if err != nil {
		return err
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	// Step 1: append h to S.
	p.window.push(hash)

	// Step 2: while |S| > MAX_BLOCKS, pop the front and prune it.
	for p.window.len() > p.maxBlocks {
		h0, ok := p.window.popFront()
		if !ok {
			break
		}
		if err := p.prune(tx, h0); err != nil {
			return fmt.Errorf("prune %s: %w", h0, err)
		}
		if err := p.chain.RemoveTxData(h0); err != nil {
			return fmt.Errorf("remove_txdata %s: %w", h0, err)
		}
		monitoring.GetGlobalMetrics().RecordBlockPruned()
	}

	// Step 3: insert the block's header row, prev_block_hash_id NULL
	// unless present in S (post-prune).
	var prevID interface{}
	if p.window.contains(block.Header.PrevBlockHash) {
		prevID = block.Header.PrevBlockHash.String()
	}
	if _, err := tx.Exec(`INSERT INTO block (hash_id, prev_block_hash_id) VALUES (?, ?)`,
		hash.String(), prevID); err != nil {
		return fmt.Errorf("insert block: %w", err)
	}

	// Step 4: per-transaction projection.
	for _, t := range block.Transactions {
		if err := p.insertTransaction(tx, hash, &t); err != nil {
			return err
		}
	}

	// Step 5: persist S to the sidecar file.
	if err := p.window.save(p.sidecarPath); err != nil {
		return fmt.Errorf("save db window: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (p *Projector) insertTransaction(tx *sql.Tx, blockHash types.Hash, t *types.Transaction) error {
	txHash, err := serialization.HashTransaction(t)
	if err != nil {
		return err
	}
	txHashHex := txHash.String()

	if _, err := tx.Exec(`INSERT INTO "transaction" (tx_hash_id, block_hash_id) VALUES (?, ?)`,
		txHashHex, blockHash.String()); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	for i, in := range t.Inputs {
		outputID := fmt.Sprintf("%s%d", in.PrevTxHash.String(), in.OutputIndex)

		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM txout WHERE output_id = ?)`, outputID).Scan(&exists); err != nil {
			return fmt.Errorf("check txout existence: %w", err)
		}

		var outputIDArg interface{}
		if exists {
			outputIDArg = outputID
		}
		if _, err := tx.Exec(`INSERT INTO txin (tx_hash_id, input_index, output_id) VALUES (?, ?, ?)`,
			txHashHex, i, outputIDArg); err != nil {
			return fmt.Errorf("insert txin: %w", err)
		}
	}

	for i, out := range t.Outputs {
		address := extractAddress(out.PubKeyScript)

		if _, err := tx.Exec(`INSERT OR IGNORE INTO address (address) VALUES (?)`, address); err != nil {
			return fmt.Errorf("upsert address: %w", err)
		}

		outputID := fmt.Sprintf("%s%d", txHashHex, i)
		if _, err := tx.Exec(`INSERT INTO txout (output_id, tx_hash_id, output_index, value, address) VALUES (?, ?, ?, ?, ?)`,
			outputID, txHashHex, i, out.Value, address); err != nil {
			return fmt.Errorf("insert txout: %w", err)
		}
	}

	return nil
}

// extractAddress implements §4.6's lax address extraction: scan for a
// hash-160 push and decode it, or return the empty string if none found.
func extractAddress(pubKeyScript []byte) string {
	hash160, ok := script.ScanHash160Push(pubKeyScript)
	if !ok {
		return ""
	}
	addr, err := keys.AddressFromHash(hash160, false)
	if err != nil {
		return ""
	}
	return addr
}

// prune runs the ordered 7-step subroutine for block h0, all within the
// caller's transaction.
func (p *Projector) prune(tx *sql.Tx, h0 types.Hash) error {
	hashHex := h0.String()

	if _, err := tx.Exec(`DELETE FROM comment WHERE block_hash_id = ?`, hashHex); err != nil {
		return fmt.Errorf("step 1 (comment): %w", err)
	}

	if _, err := tx.Exec(`UPDATE block SET prev_block_hash_id = NULL WHERE prev_block_hash_id = ?`, hashHex); err != nil {
		return fmt.Errorf("step 2 (detach successor): %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE txin SET output_id = NULL
		WHERE output_id IN (
			SELECT txout.output_id FROM txout
			JOIN "transaction" ON txout.tx_hash_id = "transaction".tx_hash_id
			WHERE "transaction".block_hash_id = ?
		)`, hashHex); err != nil {
		return fmt.Errorf("step 3 (detach txin): %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM txout WHERE tx_hash_id IN (
			SELECT tx_hash_id FROM "transaction" WHERE block_hash_id = ?
		)`, hashHex); err != nil {
		return fmt.Errorf("step 4 (delete txout): %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM txin WHERE tx_hash_id IN (
			SELECT tx_hash_id FROM "transaction" WHERE block_hash_id = ?
		)`, hashHex); err != nil {
		return fmt.Errorf("step 5 (delete txin): %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM "transaction" WHERE block_hash_id = ?`, hashHex); err != nil {
		return fmt.Errorf("step 6 (delete transaction): %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM block WHERE hash_id = ?`, hashHex); err != nil {
		return fmt.Errorf("step 7 (delete block): %w", err)
	}

	return nil
}

// Close releases the database connection.
func (p *Projector) Close() error {
	return p.db.Close()
}
