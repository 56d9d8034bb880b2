package manager

import (
	"testing"
	"time"

	"github.com/relaynode/btcindexer/pkg/network/peer"
	"github.com/relaynode/btcindexer/pkg/network/protocol"
	"github.com/relaynode/btcindexer/pkg/types"
)

func zeroHeight() int32 { return 0 }

func TestSeedAddsToPending(t *testing.T) {
	m := New(10, zeroHeight)
	m.Seed(types.IPv4NetworkAddress(1, 1, 2, 3, 4, 8333))
	m.Seed(types.IPv4NetworkAddress(1, 5, 6, 7, 8, 8333))

	if len(m.pending) != 2 {
		t.Fatalf("expected 2 pending addresses, got %d", len(m.pending))
	}
}

func TestTickPushesBackWhenAtCapacity(t *testing.T) {
	m := New(1, zeroHeight)
	m.active["already-connected:8333"] = peer.NewPeer("already-connected:8333", 1, 0)
	m.Seed(types.IPv4NetworkAddress(1, 1, 2, 3, 4, 8333))
	m.Seed(types.IPv4NetworkAddress(1, 5, 6, 7, 8, 8333))

	m.tick()

	if len(m.pending) != 2 {
		t.Errorf("expected both addresses pushed back, pending has %d", len(m.pending))
	}
	if len(m.active) != 1 {
		t.Errorf("active should be unchanged at capacity, got %d", len(m.active))
	}
}

func TestTickSpawnsUpToCapacity(t *testing.T) {
	m := New(2, zeroHeight)
	m.Seed(types.IPv4NetworkAddress(1, 127, 0, 0, 1, 1))

	m.tick()

	if len(m.pending) != 0 {
		t.Errorf("expected the seeded address to be consumed, pending has %d", len(m.pending))
	}
	if len(m.active) != 1 {
		t.Errorf("expected one active session, got %d", len(m.active))
	}
	if _, ok := m.active["127.0.0.1:1"]; !ok {
		t.Error("expected active map keyed by endpoint string")
	}
}

func TestTickSkipsAlreadyActiveEndpoint(t *testing.T) {
	m := New(5, zeroHeight)
	existing := peer.NewPeer("127.0.0.1:2", 9, 0)
	m.active["127.0.0.1:2"] = existing
	m.Seed(types.IPv4NetworkAddress(1, 127, 0, 0, 1, 2))

	m.tick()

	if len(m.active) != 1 {
		t.Fatalf("expected the duplicate endpoint not to spawn a second session, got %d active", len(m.active))
	}
	if m.active["127.0.0.1:2"] != existing {
		t.Error("existing session should not be replaced")
	}
}

func TestConsumeRelaysAddressesIntoPending(t *testing.T) {
	m := New(10, zeroHeight)
	p := peer.NewPeer("peerA:8333", 1, 0)
	m.active["peerA:8333"] = p
	go m.consume(p)

	gossiped := types.IPv4NetworkAddress(1, 9, 9, 9, 9, 8333)
	p.Events <- peer.AddressesEvent{Addresses: []protocol.TimestampedAddress{
		{Timestamp: 1700000000, Addr: gossiped},
	}}

	waitFor(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.pending) == 1
	})
}

func TestConsumeForwardsDomainEventsToController(t *testing.T) {
	m := New(10, zeroHeight)
	p := peer.NewPeer("peerB:8333", 1, 0)
	m.active["peerB:8333"] = p
	go m.consume(p)

	p.Events <- peer.InvEvent{Endpoint: "peerB:8333"}

	select {
	case ev := <-m.Controller:
		if _, ok := ev.(peer.InvEvent); !ok {
			t.Errorf("expected InvEvent on controller channel, got %T", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded event")
	}
}

func TestConsumeCloseThreadRemovesFromActiveAndAcks(t *testing.T) {
	m := New(10, zeroHeight)
	p := peer.NewPeer("peerC:8333", 1, 0)
	m.active["peerC:8333"] = p
	go m.consume(p)

	ack := make(chan struct{})
	p.Events <- peer.CloseThreadEvent{Endpoint: "peerC:8333", Reason: nil, Ack: ack}

	select {
	case <-ack:
	case <-time.After(time.Second):
		t.Fatal("consume did not ack the CloseThread event")
	}

	waitFor(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		_, stillActive := m.active["peerC:8333"]
		return !stillActive
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
