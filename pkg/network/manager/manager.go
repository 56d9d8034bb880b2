// Package manager implements the connection manager (§4.3): the shared
// pending/active peer pool, its scheduling tick, and the per-peer event
// consumer that relays wire events onto the sync controller's channel.
package manager

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/relaynode/btcindexer/pkg/monitoring"
	"github.com/relaynode/btcindexer/pkg/network/peer"
	"github.com/relaynode/btcindexer/pkg/types"
)

const tickInterval = 500 * time.Millisecond

// Manager owns the pending address stack and the active peer map, and
// schedules outbound connections up to maxCnxs.
type Manager struct {
	mu      sync.Mutex
	pending []types.NetworkAddress
	active  map[string]*peer.Peer

	maxCnxs     int
	startHeight func() int32

	// Controller is the single central channel the sync controller reads
	// Headers/Inv/Block/Tx events from.
	Controller chan peer.Event

	quit chan struct{}
	log  *monitoring.Logger
}

// New creates a connection manager bounded at maxCnxs concurrent sessions.
func New(maxCnxs int, startHeight func() int32) *Manager {
	return &Manager{
		active:      make(map[string]*peer.Peer),
		maxCnxs:     maxCnxs,
		startHeight: startHeight,
		Controller:  make(chan peer.Event, 256),
		quit:        make(chan struct{}),
		log:         monitoring.NewLogger("info").WithField("component", "manager"),
	}
}

// Seed adds bootstrap addresses to the pending stack.
func (m *Manager) Seed(addrs ...types.NetworkAddress) {
	m.mu.Lock()
	m.pending = append(m.pending, addrs...)
	m.mu.Unlock()
}

// ActiveCount returns the number of sessions currently in the active map.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Run drives the scheduling tick until Stop is called.
func (m *Manager) Run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick()
		case <-m.quit:
			return
		}
	}
}

// Stop signals Run and every event consumer to exit.
func (m *Manager) Stop() {
	close(m.quit)
}

// tick implements the scheduling step of §4.3: one mutex held over both
// pending and active, capacity-checked pop loop, push-back-and-yield at
// capacity.
func (m *Manager) tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.pending) > 0 {
		n := len(m.pending)
		addr := m.pending[n-1]
		m.pending = m.pending[:n-1]

		if len(m.active) >= m.maxCnxs {
			m.pending = append(m.pending, addr)
			return
		}

		endpoint := addr.Endpoint()
		if _, exists := m.active[endpoint]; exists {
			continue
		}

		p := peer.NewPeer(endpoint, randomNonce(), m.startHeight())
		m.active[endpoint] = p
		monitoring.GetGlobalMetrics().IncrementPeerCount()
		go p.Run()
		go m.consume(p)
	}
}

// consume relays one peer session's events: address gossip feeds back into
// pending, domain events forward to the controller, and CloseThread runs
// the two-step teardown before removing the endpoint from active.
func (m *Manager) consume(p *peer.Peer) {
	for {
		select {
		case ev, ok := <-p.Events:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case peer.AddressesEvent:
				m.mu.Lock()
				for _, ta := range e.Addresses {
					m.pending = append(m.pending, ta.Addr)
				}
				m.mu.Unlock()

			case peer.CloseThreadEvent:
				close(e.Ack)
				m.mu.Lock()
				delete(m.active, e.Endpoint)
				m.mu.Unlock()
				monitoring.GetGlobalMetrics().DecrementPeerCount()
				m.log.WithField("endpoint", e.Endpoint).Infof("session closed: %v", e.Reason)
				return

			default:
				select {
				case m.Controller <- ev:
				case <-m.quit:
					return
				}
			}
		case <-m.quit:
			return
		}
	}
}

// Broadcast sends cmd to every currently active peer's command channel.
func (m *Manager) Broadcast(cmd peer.Command) {
	m.mu.Lock()
	peers := make([]*peer.Peer, 0, len(m.active))
	for _, p := range m.active {
		peers = append(peers, p)
	}
	m.mu.Unlock()

	for _, p := range peers {
		select {
		case p.Commands <- cmd:
		default:
			m.log.WithField("endpoint", p.Address()).Warn("command channel full, dropping")
		}
	}
}

// SendTo sends cmd to the named endpoint if it is still active. It reports
// whether the peer was found.
func (m *Manager) SendTo(endpoint string, cmd peer.Command) bool {
	m.mu.Lock()
	p, ok := m.active[endpoint]
	m.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case p.Commands <- cmd:
	default:
		m.log.WithField("endpoint", endpoint).Warn("command channel full, dropping")
	}
	return true
}

func randomNonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}
