package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// NodeConfig holds the runtime configuration for the indexer daemon.
type NodeConfig struct {
	// Node Identity
	NodeID string

	// Network Configuration
	Network       string // mainnet, testnet
	P2PPort       int    // P2P network port (default 8333)
	BootstrapPeer string // address of the first peer to dial

	// Storage
	DataDir      string // data directory path
	ChainFile    string // path to the consensus-encoded chain file
	DBConnString string // database/sql data source name for the projector

	// Limits
	MaxConnections int // MAX_CNXS, bounded size of the active peer pool
	MaxBlocks      int // MAX_BLOCKS, DbWindow size

	// Logging
	LogLevel string // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *NodeConfig {
	return &NodeConfig{
		NodeID:         "btcindexer",
		Network:        "mainnet",
		P2PPort:        8333,
		BootstrapPeer:  "",
		DataDir:        "./data/node",
		ChainFile:      "./data/node/chain.dat",
		DBConnString:   "./data/node/index.db",
		MaxConnections: 50,
		MaxBlocks:      200,
		LogLevel:       "info",
	}
}

// LoadFromEnv loads configuration from environment variables, overlaying
// DefaultConfig for container/operational deployment.
func LoadFromEnv() *NodeConfig {
	cfg := DefaultConfig()

	if nodeID := os.Getenv("NODE_ID"); nodeID != "" {
		cfg.NodeID = nodeID
	}
	if network := os.Getenv("NETWORK"); network != "" {
		cfg.Network = network
	}
	if p2pPort := os.Getenv("P2P_PORT"); p2pPort != "" {
		if port, err := strconv.Atoi(p2pPort); err == nil {
			cfg.P2PPort = port
		}
	}
	if peer := os.Getenv("BOOTSTRAP_PEER"); peer != "" {
		cfg.BootstrapPeer = peer
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if chainFile := os.Getenv("CHAIN_FILE"); chainFile != "" {
		cfg.ChainFile = chainFile
	}
	if dsn := os.Getenv("DB_CONN_STRING"); dsn != "" {
		cfg.DBConnString = dsn
	}
	if maxCnxs := os.Getenv("MAX_CONNECTIONS"); maxCnxs != "" {
		if n, err := strconv.Atoi(maxCnxs); err == nil {
			cfg.MaxConnections = n
		}
	}
	if maxBlocks := os.Getenv("MAX_BLOCKS"); maxBlocks != "" {
		if n, err := strconv.Atoi(maxBlocks); err == nil {
			cfg.MaxBlocks = n
		}
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg
}

// Validate checks if the configuration is usable.
func (c *NodeConfig) Validate() error {
	validNetworks := map[string]bool{"mainnet": true, "testnet": true}
	if !validNetworks[c.Network] {
		return fmt.Errorf("invalid network: %s (must be mainnet or testnet)", c.Network)
	}

	if c.P2PPort < 1 || c.P2PPort > 65535 {
		return fmt.Errorf("invalid P2P port: %d", c.P2PPort)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if c.ChainFile == "" {
		return fmt.Errorf("chain file path cannot be empty")
	}
	if c.DBConnString == "" {
		return fmt.Errorf("database connection string cannot be empty")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("max connections must be positive: %d", c.MaxConnections)
	}
	if c.MaxBlocks < 1 {
		return fmt.Errorf("max blocks must be positive: %d", c.MaxBlocks)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// String returns a human-readable summary of the configuration.
func (c *NodeConfig) String() string {
	return fmt.Sprintf(`btcindexer configuration:
  Node ID:          %s
  Network:          %s
  P2P Port:         %d
  Bootstrap Peer:   %s
  Data Directory:   %s
  Chain File:       %s
  DB Conn String:   %s
  Max Connections:  %d
  Max Blocks:       %d
  Log Level:        %s`,
		c.NodeID,
		c.Network,
		c.P2PPort,
		c.BootstrapPeer,
		c.DataDir,
		c.ChainFile,
		c.DBConnString,
		c.MaxConnections,
		c.MaxBlocks,
		c.LogLevel,
	)
}

// GetP2PAddress returns the full listen address for the P2P port.
func (c *NodeConfig) GetP2PAddress() string {
	return fmt.Sprintf(":%d", c.P2PPort)
}

// SidecarPath returns the path to the DbWindow sidecar file, placed
// alongside the chain file rather than in DataDir, since ChainFile is
// independently settable via the CLI.
func (c *NodeConfig) SidecarPath() string {
	return filepath.Join(filepath.Dir(c.ChainFile), "db_state.dat")
}
