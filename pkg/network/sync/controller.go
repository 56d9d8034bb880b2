// Package sync implements the sync controller (§4.5): the two-phase
// Sync -> Listen state machine driving header synchronization and then
// inventory-driven block ingest.
package sync

import (
	"time"

	"github.com/relaynode/btcindexer/pkg/chain"
	"github.com/relaynode/btcindexer/pkg/monitoring"
	"github.com/relaynode/btcindexer/pkg/network/manager"
	"github.com/relaynode/btcindexer/pkg/network/peer"
	"github.com/relaynode/btcindexer/pkg/network/protocol"
	"github.com/relaynode/btcindexer/pkg/types"
)

// Projector is the subset of the DB projector's interface the controller
// needs: one transactional update per ingested block.
type Projector interface {
	Update(block *types.Block) error
}

// Controller owns the chain store and DB window exclusively once running
// (§5): peer sessions never touch either. Listen is terminal absent
// process restart.
type Controller struct {
	chain   *chain.Chain
	manager *manager.Manager
	proj    Projector

	chainFile string
	maxCnxs   int

	log *monitoring.Logger
}

// New creates a sync controller over an already-loaded chain store.
func New(c *chain.Chain, m *manager.Manager, proj Projector, chainFile string, maxCnxs int) *Controller {
	return &Controller{
		chain:     c,
		manager:   m,
		proj:      proj,
		chainFile: chainFile,
		maxCnxs:   maxCnxs,
		log:       monitoring.NewLogger("info").WithField("component", "sync"),
	}
}

// Run executes the Sync phase to completion and then the indefinite Listen
// phase. It blocks until the manager's controller channel is closed.
func (c *Controller) Run() {
	c.runSync()
	c.log.Info("sync phase complete, entering listen phase")
	c.runListen()
}

func (c *Controller) runSync() {
	for c.manager.ActiveCount() < c.maxCnxs/2 {
		time.Sleep(100 * time.Millisecond)
	}

	for {
		locator := c.chain.LocatorHashes()
		c.manager.Broadcast(peer.GetHeadersCommand{Locator: locator, HashStop: types.Hash{}})

		newHeaders := false
		exhausted := false

		for !newHeaders && !exhausted {
			ev := <-c.manager.Controller
			headersEv, ok := ev.(peer.HeadersEvent)
			if !ok {
				continue
			}

			if len(headersEv.Headers) == 0 {
				exhausted = true
				continue
			}

			for _, lh := range headersEv.Headers {
				switch err := c.chain.AddHeader(lh.Header); err {
				case nil:
					newHeaders = true
				case chain.ErrDuplicateHash:
					// benign replay, §4.5 step (b)
				default:
					c.log.Warnf("add_header: %v", err)
				}
			}
		}

		if newHeaders {
			if err := c.chain.Save(c.chainFile); err != nil {
				c.log.Warnf("persist chain: %v", err)
			}
			continue
		}

		if exhausted {
			return
		}
	}
}

func (c *Controller) runListen() {
	for ev := range c.manager.Controller {
		switch e := ev.(type) {
		case peer.InvEvent:
			c.handleInv(e)
		case peer.BlockEvent:
			c.handleBlock(e)
		case peer.HeadersEvent:
			c.log.Debug("headers received during listen, logged only")
		case peer.TxEvent:
			// no action in this iteration
		}
	}
}

func (c *Controller) handleInv(e peer.InvEvent) {
	var blocks []*protocol.InvVect
	for _, item := range e.Items {
		if item.Type == protocol.InvTypeBlock {
			blocks = append(blocks, item)
		}
	}
	if len(blocks) == 0 {
		return
	}
	if !c.manager.SendTo(e.Endpoint, peer.GetDataCommand{Items: blocks}) {
		c.log.WithField("endpoint", e.Endpoint).Debug("peer no longer active, dropping getdata")
	}
}

func (c *Controller) handleBlock(e peer.BlockEvent) {
	err := c.chain.AddBlock(e.Block)
	switch err {
	case nil:
		start := time.Now()
		if perr := c.proj.Update(e.Block); perr != nil {
			c.log.Warnf("projector update: %v", perr)
			return
		}
		monitoring.GetGlobalMetrics().RecordBlockProcessed(time.Since(start))
	case chain.ErrPrevHashNotFound, chain.ErrDuplicateHash:
		c.log.Debugf("add_block: %v", err)
	default:
		c.log.Warnf("add_block: %v", err)
	}
}
