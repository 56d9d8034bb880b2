package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects and tracks system metrics for the subsystems this node
// actually runs: block ingest, peer population, and wire traffic.
type Metrics struct {
	mu sync.RWMutex

	// Block processing metrics
	blocksProcessed     uint64
	blockProcessingTime time.Duration
	lastBlockTime       time.Time
	avgBlockTime        time.Duration

	// Peer metrics
	peerCount     int32
	outboundPeers int32

	// Network metrics
	bytesReceived    uint64
	bytesSent        uint64
	messagesReceived uint64
	messagesSent     uint64

	// DB projector metrics
	blocksPruned uint64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{lastBlockTime: time.Now()}
}

// RecordBlockProcessed records a projected block and its processing latency.
func (m *Metrics) RecordBlockProcessed(processingTime time.Duration) {
	atomic.AddUint64(&m.blocksProcessed, 1)

	m.mu.Lock()
	m.blockProcessingTime += processingTime
	m.lastBlockTime = time.Now()
	if m.blocksProcessed > 0 {
		m.avgBlockTime = m.blockProcessingTime / time.Duration(m.blocksProcessed)
	}
	m.mu.Unlock()
}

// GetBlocksProcessed returns total blocks processed.
func (m *Metrics) GetBlocksProcessed() uint64 {
	return atomic.LoadUint64(&m.blocksProcessed)
}

// GetAvgBlockProcessingTime returns average block processing time.
func (m *Metrics) GetAvgBlockProcessingTime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.avgBlockTime
}

// RecordBlockPruned records a block leaving the DbWindow.
func (m *Metrics) RecordBlockPruned() {
	atomic.AddUint64(&m.blocksPruned, 1)
}

// GetBlocksPruned returns total blocks pruned from the window.
func (m *Metrics) GetBlocksPruned() uint64 {
	return atomic.LoadUint64(&m.blocksPruned)
}

// IncrementPeerCount increments the outbound peer count (this node never
// accepts inbound connections).
func (m *Metrics) IncrementPeerCount() {
	atomic.AddInt32(&m.peerCount, 1)
	atomic.AddInt32(&m.outboundPeers, 1)
}

// DecrementPeerCount decrements the outbound peer count.
func (m *Metrics) DecrementPeerCount() {
	atomic.AddInt32(&m.peerCount, -1)
	atomic.AddInt32(&m.outboundPeers, -1)
}

// GetPeerCount returns current peer count.
func (m *Metrics) GetPeerCount() int {
	return int(atomic.LoadInt32(&m.peerCount))
}

// RecordBytesReceived records bytes received.
func (m *Metrics) RecordBytesReceived(bytes uint64) {
	atomic.AddUint64(&m.bytesReceived, bytes)
}

// RecordBytesSent records bytes sent.
func (m *Metrics) RecordBytesSent(bytes uint64) {
	atomic.AddUint64(&m.bytesSent, bytes)
}

// RecordMessageReceived records a received message.
func (m *Metrics) RecordMessageReceived() {
	atomic.AddUint64(&m.messagesReceived, 1)
}

// RecordMessageSent records a sent message.
func (m *Metrics) RecordMessageSent() {
	atomic.AddUint64(&m.messagesSent, 1)
}

// GetBytesReceived returns total bytes received.
func (m *Metrics) GetBytesReceived() uint64 {
	return atomic.LoadUint64(&m.bytesReceived)
}

// GetBytesSent returns total bytes sent.
func (m *Metrics) GetBytesSent() uint64 {
	return atomic.LoadUint64(&m.bytesSent)
}

// Summary returns a metrics summary suitable for logging or a status line.
func (m *Metrics) Summary() map[string]interface{} {
	return map[string]interface{}{
		"blocks_processed":  m.GetBlocksProcessed(),
		"avg_block_time_ms": m.GetAvgBlockProcessingTime().Milliseconds(),
		"blocks_pruned":     m.GetBlocksPruned(),
		"peer_count":        m.GetPeerCount(),
		"bytes_received":    m.GetBytesReceived(),
		"bytes_sent":        m.GetBytesSent(),
	}
}

// globalMetrics is the process-wide metrics instance.
var globalMetrics = NewMetrics()

// GetGlobalMetrics returns the global metrics instance.
func GetGlobalMetrics() *Metrics {
	return globalMetrics
}
