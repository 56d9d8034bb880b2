package peer

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/relaynode/btcindexer/pkg/monitoring"
	"github.com/relaynode/btcindexer/pkg/network/protocol"
)

// fakeRemote drives the far end of a net.Pipe as a minimal Bitcoin peer:
// it answers our Version with its own Version then Verack, then reads back
// the session's Verack and GetAddr.
func fakeRemote(t *testing.T, conn net.Conn) {
	t.Helper()
	reader := bufio.NewReader(conn)

	// Peer expects to read our Version first.
	msg, err := protocol.Deserialize(reader)
	if err != nil {
		t.Errorf("fake remote: read version: %v", err)
		return
	}
	if msg.Command != protocol.CmdVersion {
		t.Errorf("fake remote: expected version, got %s", msg.Command)
	}

	send := func(command string, payload []byte) {
		m := protocol.NewMessage(protocol.MagicMainnet, command, payload)
		data, err := m.Serialize()
		if err != nil {
			t.Errorf("fake remote: serialize %s: %v", command, err)
			return
		}
		if _, err := conn.Write(data); err != nil {
			t.Errorf("fake remote: write %s: %v", command, err)
		}
	}

	remoteVersion := protocol.NewVersionMessage(protocol.NetAddress{}, protocol.NetAddress{}, 1, "/fake/", 0)
	payload, _ := remoteVersion.Serialize()
	// net.Pipe has no buffering: write from a separate goroutine so the
	// session can send its Verack while our Verack is still pending.
	go func() {
		send(protocol.CmdVersion, payload)
		send(protocol.CmdVerAck, nil)
	}()

	// Our session should answer our received Version with a Verack.
	msg, err = protocol.Deserialize(reader)
	if err != nil {
		t.Errorf("fake remote: read verack: %v", err)
		return
	}
	if msg.Command != protocol.CmdVerAck {
		t.Errorf("fake remote: expected verack, got %s", msg.Command)
	}

	// Then a GetAddr once the session reaches Ready.
	msg, err = protocol.Deserialize(reader)
	if err != nil {
		t.Errorf("fake remote: read getaddr: %v", err)
		return
	}
	if msg.Command != protocol.CmdGetAddr {
		t.Errorf("fake remote: expected getaddr, got %s", msg.Command)
	}
}

func TestHandshakeReachesReady(t *testing.T) {
	client, remote := net.Pipe()
	defer remote.Close()

	done := make(chan struct{})
	go func() {
		fakeRemote(t, remote)
		close(done)
	}()

	p := &Peer{
		addr:     "test:0",
		conn:     client,
		state:    StateHandshaking,
		nonce:    7,
		quit:     make(chan struct{}),
		Events:   make(chan Event, 8),
		Commands: make(chan Command, 8),
	}
	p.log = monitoring.NewLogger("error")

	if err := p.handshake(); err != nil {
		t.Fatalf("handshake failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fake remote did not complete in time")
	}
}

func TestPingElicitsPong(t *testing.T) {
	client, remote := net.Pipe()
	defer client.Close()
	defer remote.Close()

	p := &Peer{
		addr:     "test:0",
		conn:     client,
		state:    StateReady,
		quit:     make(chan struct{}),
		Events:   make(chan Event, 8),
		Commands: make(chan Command, 8),
	}
	p.log = monitoring.NewLogger("error")

	ping := protocol.NewPingMessage(999)
	payload, err := ping.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	incoming := protocol.NewMessage(protocol.MagicMainnet, protocol.CmdPing, payload)

	remote.SetReadDeadline(time.Now().Add(2 * time.Second))
	done := make(chan error, 1)
	go func() { done <- p.dispatch(incoming) }()

	reader := bufio.NewReader(remote)
	pong, err := protocol.Deserialize(reader)
	if err != nil {
		t.Fatalf("expected a pong in response: %v", err)
	}
	if pong.Command != protocol.CmdPong {
		t.Fatalf("expected pong command, got %s", pong.Command)
	}
	got, err := protocol.DeserializePong(pong.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if got.Nonce != 999 {
		t.Errorf("pong nonce mismatch: got %d, want 999", got.Nonce)
	}

	if err := <-done; err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}
