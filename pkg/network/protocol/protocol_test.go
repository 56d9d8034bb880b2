package protocol

import (
	"bytes"
	"testing"

	"github.com/relaynode/btcindexer/pkg/types"
)

func TestMessageSerializeDeserializeRoundTrip(t *testing.T) {
	payload := []byte("hello wire")
	msg := NewMessage(MagicMainnet, CmdPing, payload)

	data, err := msg.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	got, err := Deserialize(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if got.Command != CmdPing || !bytes.Equal(got.Payload, payload) {
		t.Errorf("round-trip mismatch: got %+v", got)
	}
}

func TestVersionMessageRoundTrip(t *testing.T) {
	addrRecv := types.IPv4NetworkAddress(SFNodeNetwork, 127, 0, 0, 1, 8333)
	addrFrom := types.IPv4NetworkAddress(SFNodeNetwork, 10, 0, 0, 1, 8333)

	v := NewVersionMessage(addrRecv, addrFrom, 123456789, "/btcindexer:0.1.0/", 42)

	data, err := v.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	got, err := DeserializeVersion(data)
	if err != nil {
		t.Fatal(err)
	}

	if got.UserAgent != v.UserAgent || got.Nonce != v.Nonce || got.StartHeight != v.StartHeight {
		t.Errorf("version round-trip mismatch: got %+v", got)
	}
	if got.AddrRecv.Endpoint() != addrRecv.Endpoint() {
		t.Errorf("AddrRecv endpoint mismatch: got %s, want %s", got.AddrRecv.Endpoint(), addrRecv.Endpoint())
	}
	if got.AddrFrom.Endpoint() != addrFrom.Endpoint() {
		t.Errorf("AddrFrom endpoint mismatch: got %s, want %s", got.AddrFrom.Endpoint(), addrFrom.Endpoint())
	}
}

func TestPingPongRoundTrip(t *testing.T) {
	ping := NewPingMessage(0xDEADBEEF)
	data, err := ping.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DeserializePing(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Nonce != ping.Nonce {
		t.Errorf("ping nonce mismatch: got %d, want %d", got.Nonce, ping.Nonce)
	}

	pong := NewPongMessage(got.Nonce)
	pongData, err := pong.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	gotPong, err := DeserializePong(pongData)
	if err != nil {
		t.Fatal(err)
	}
	if gotPong.Nonce != ping.Nonce {
		t.Errorf("pong should echo ping's nonce: got %d, want %d", gotPong.Nonce, ping.Nonce)
	}
}

func TestAddrMessageRoundTrip(t *testing.T) {
	a := NewAddrMessage()
	a.AddAddress(1700000000, types.IPv4NetworkAddress(1, 8, 8, 8, 8, 8333))
	a.AddAddress(1700000001, types.IPv4NetworkAddress(1, 1, 1, 1, 1, 8333))

	data, err := a.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DeserializeAddr(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Addresses) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(got.Addresses))
	}
	if got.Addresses[0].Addr.Endpoint() != "8.8.8.8:8333" {
		t.Errorf("unexpected endpoint: %s", got.Addresses[0].Addr.Endpoint())
	}
}

func TestHeadersMessageRoundTrip(t *testing.T) {
	h := NewHeadersMessage()
	h.AddHeader(types.BlockHeader{Version: 1, Timestamp: 1700000000, Bits: 0x1d00ffff, Nonce: 7}, 0)
	h.AddHeader(types.BlockHeader{Version: 1, Timestamp: 1700000100, Bits: 0x1d00ffff, Nonce: 8}, 0)

	data, err := h.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DeserializeHeaders(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Headers) != 2 {
		t.Fatalf("expected 2 headers, got %d", len(got.Headers))
	}
	if got.Headers[0].Header.Nonce != 7 || got.Headers[1].Header.Nonce != 8 {
		t.Errorf("headers round-trip mismatch: got %+v", got.Headers)
	}
}

func TestEmptyHeadersMessageRoundTrip(t *testing.T) {
	h := NewHeadersMessage()
	data, err := h.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DeserializeHeaders(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Headers) != 0 {
		t.Errorf("expected empty headers, got %d", len(got.Headers))
	}
}

func TestInvMessageRoundTrip(t *testing.T) {
	inv := NewInvMessage()
	inv.AddInvVect(NewInvVect(InvTypeBlock, types.Hash{1, 2, 3}))
	inv.AddInvVect(NewInvVect(InvTypeTx, types.Hash{4, 5, 6}))

	data, err := inv.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DeserializeInv(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Inventory) != 2 || got.Inventory[0].Type != InvTypeBlock {
		t.Errorf("inv round-trip mismatch: got %+v", got.Inventory)
	}
}
