// Command btcindexer runs a partial Bitcoin P2P indexer daemon: it joins
// the network as a client-only node, synchronizes headers, ingests
// inventory-announced blocks, and projects them into a relational index.
package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/relaynode/btcindexer/pkg/chain"
	"github.com/relaynode/btcindexer/pkg/config"
	"github.com/relaynode/btcindexer/pkg/monitoring"
	"github.com/relaynode/btcindexer/pkg/network/manager"
	"github.com/relaynode/btcindexer/pkg/network/sync"
	"github.com/relaynode/btcindexer/pkg/projector"
	"github.com/relaynode/btcindexer/pkg/types"
)

const statusLogInterval = 30 * time.Second

// logStatus periodically logs a metrics summary until quit is closed.
func logStatus(logger *monitoring.Logger, quit <-chan struct{}) {
	ticker := time.NewTicker(statusLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.WithField("metrics", monitoring.GetGlobalMetrics().Summary()).Info("status")
		case <-quit:
			return
		}
	}
}

// applyArgs overlays the four positional arguments §6 specifies onto cfg:
// bootstrap peer IP, port, chain file path, database connection string.
// Any argument may be omitted; missing ones keep the compiled-in default.
func applyArgs(cfg *config.NodeConfig, args []string) {
	if len(args) > 0 && args[0] != "" {
		cfg.BootstrapPeer = args[0]
	}
	if len(args) > 1 && args[1] != "" {
		if port, err := strconv.Atoi(args[1]); err == nil {
			cfg.P2PPort = port
		}
	}
	if len(args) > 2 && args[2] != "" {
		cfg.ChainFile = args[2]
	}
	if len(args) > 3 && args[3] != "" {
		cfg.DBConnString = args[3]
	}
}

func main() {
	cfg := config.LoadFromEnv()
	applyArgs(cfg, os.Args[1:])

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	monitoring.SetGlobalLevel(cfg.LogLevel)
	logger := monitoring.NewLogger(cfg.LogLevel).WithField("component", "main")
	logger.Info("starting btcindexer")
	logger.Infof("config: %s", cfg.String())

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data directory: %v", err)
	}

	chainStore, err := chain.Load(cfg.ChainFile, cfg.DataDir+"/txdata")
	if err != nil {
		// Corruption on load is fatal per the chain store's contract.
		log.Fatalf("load chain store: %v", err)
	}
	defer chainStore.Close()

	proj, err := projector.New(cfg.DBConnString, cfg.SidecarPath(), cfg.MaxBlocks, chainStore)
	if err != nil {
		log.Fatalf("open db projector: %v", err)
	}
	defer proj.Close()

	startHeight := func() int32 {
		info, ok := chainStore.GetBlock(chainStore.BestTipHash())
		if !ok {
			return 0
		}
		return int32(info.Height)
	}

	mgr := manager.New(cfg.MaxConnections, startHeight)
	if cfg.BootstrapPeer != "" {
		mgr.Seed(types.IPv4NetworkAddressFromDotted(cfg.BootstrapPeer, uint16(cfg.P2PPort)))
	}
	go mgr.Run()
	defer mgr.Stop()

	controller := sync.New(chainStore, mgr, proj, cfg.ChainFile, cfg.MaxConnections)
	go controller.Run()

	statusQuit := make(chan struct{})
	go logStatus(logger, statusQuit)
	defer close(statusQuit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received")
	if err := chainStore.Save(cfg.ChainFile); err != nil {
		logger.Errorf("final chain save failed: %v", err)
		os.Exit(1)
	}
	logger.Info("stopped gracefully")
}
