// Package peer implements the per-connection session state machine:
// Disconnected -> Connecting -> Handshaking -> Ready -> Closed.
package peer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/relaynode/btcindexer/pkg/monitoring"
	"github.com/relaynode/btcindexer/pkg/network/protocol"
	"github.com/relaynode/btcindexer/pkg/serialization"
	"github.com/relaynode/btcindexer/pkg/types"
)

// State is a session's position in the Disconnected/Connecting/Handshaking/
// Ready/Closed state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	dialAttempts    = 5
	dialBackoff     = 3 * time.Second
	dialTimeout     = 10 * time.Second
	readIdleTimeout = 20 * time.Minute
	writeTimeout    = 5 * time.Second
)

// Event is an upstream message a Ready session forwards to its consumer
// (the connection manager, which relays most of them to the sync
// controller).
type Event interface{ isEvent() }

// AddressesEvent carries a peer-gossiped address list.
type AddressesEvent struct {
	Addresses []protocol.TimestampedAddress
}

// InvEvent carries an announced inventory list from a given endpoint.
type InvEvent struct {
	Endpoint string
	Items    []*protocol.InvVect
}

// HeadersEvent carries a batch of lone headers from a given endpoint.
type HeadersEvent struct {
	Endpoint string
	Headers  []types.LoneBlockHeader
}

// BlockEvent carries a full block.
type BlockEvent struct {
	Block *types.Block
}

// TxEvent carries a standalone transaction.
type TxEvent struct {
	Tx *types.Transaction
}

// CloseThreadEvent is the two-step teardown handshake: the session will not
// release its resources until the consumer sends on Ack.
type CloseThreadEvent struct {
	Endpoint string
	Reason   error
	Ack      chan struct{}
}

func (AddressesEvent) isEvent()   {}
func (InvEvent) isEvent()         {}
func (HeadersEvent) isEvent()     {}
func (BlockEvent) isEvent()       {}
func (TxEvent) isEvent()          {}
func (CloseThreadEvent) isEvent() {}

// Command is an outbound instruction from the controller, written to the
// peer's socket.
type Command interface{ isCommand() }

// GetHeadersCommand requests headers starting after locator.
type GetHeadersCommand struct {
	Locator  []types.Hash
	HashStop types.Hash
}

// GetDataCommand requests the given inventory items.
type GetDataCommand struct {
	Items []*protocol.InvVect
}

func (GetHeadersCommand) isCommand() {}
func (GetDataCommand) isCommand()    {}

// Peer is a single outbound connection session.
type Peer struct {
	addr string
	conn net.Conn

	mu    sync.Mutex
	state State

	nonce       uint64
	startHeight int32

	Events   chan Event
	Commands chan Command

	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	log *monitoring.Logger
}

// NewPeer creates a session for the given dotted-quad:port endpoint. The
// session owns no socket until Connect succeeds.
func NewPeer(addr string, nonce uint64, startHeight int32) *Peer {
	return &Peer{
		addr:        addr,
		state:       StateDisconnected,
		nonce:       nonce,
		startHeight: startHeight,
		Events:      make(chan Event, 64),
		Commands:    make(chan Command, 64),
		quit:        make(chan struct{}),
		log:         monitoring.NewLogger("info").WithField("peer", addr),
	}
}

// Address returns the peer's endpoint string.
func (p *Peer) Address() string {
	return p.addr
}

// State returns the current session state.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Peer) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run dials the peer (with retry), performs the handshake, and then drives
// the Ready-phase read/write loops until the session closes. It blocks
// until the session reaches Closed; callers should invoke it in its own
// goroutine.
func (p *Peer) Run() {
	p.setState(StateConnecting)
	conn, err := p.dialWithRetry()
	if err != nil {
		p.log.Warnf("connect failed after retries: %v", err)
		p.setState(StateClosed)
		p.emitClose(err)
		return
	}
	p.conn = conn

	p.setState(StateHandshaking)
	if err := p.handshake(); err != nil {
		p.log.Warnf("handshake failed: %v", err)
		p.conn.Close()
		p.setState(StateClosed)
		p.emitClose(err)
		return
	}

	p.setState(StateReady)
	p.log.Info("session ready")

	p.wg.Add(2)
	go p.readLoop()
	go p.writeLoop()
	p.wg.Wait()

	p.setState(StateClosed)
}

func (p *Peer) dialWithRetry() (net.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err := net.DialTimeout("tcp", p.addr, dialTimeout)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		p.log.Debugf("dial attempt %d/%d failed: %v", attempt, dialAttempts, err)
		if attempt < dialAttempts {
			time.Sleep(dialBackoff)
		}
	}
	return nil, fmt.Errorf("dial %s: %w", p.addr, lastErr)
}

// handshake implements §4.2's Handshaking phase: send our Version, then wait
// for the peer's Version (answer with Verack) and the peer's Verack (answer
// with GetAddr), in whatever order they arrive.
func (p *Peer) handshake() error {
	reader := bufio.NewReader(p.conn)

	local := protocol.NewVersionMessage(
		types.NetworkAddress{},
		types.NetworkAddress{},
		p.nonce,
		"/btcindexer:0.1.0/",
		p.startHeight,
	)
	if err := p.writeMessage(protocol.CmdVersion, local); err != nil {
		return fmt.Errorf("send version: %w", err)
	}

	gotVersion, gotVerack := false, false
	for {
		p.conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		msg, err := protocol.Deserialize(reader)
		if err != nil {
			return fmt.Errorf("handshake read: %w", err)
		}

		switch msg.Command {
		case protocol.CmdVersion:
			if err := p.sendRaw(protocol.CmdVerAck, nil); err != nil {
				return fmt.Errorf("send verack: %w", err)
			}
			gotVersion = true
		case protocol.CmdVerAck:
			if err := p.sendRaw(protocol.CmdGetAddr, nil); err != nil {
				return fmt.Errorf("send getaddr: %w", err)
			}
			gotVerack = true
		default:
			p.log.Debugf("ignoring %s during handshake", msg.Command)
		}
		if gotVersion && gotVerack {
			return nil
		}
	}
}

func (p *Peer) writeMessage(command string, v interface{ Serialize() ([]byte, error) }) error {
	payload, err := v.Serialize()
	if err != nil {
		return err
	}
	return p.sendRaw(command, payload)
}

func (p *Peer) sendRaw(command string, payload []byte) error {
	msg := protocol.NewMessage(protocol.MagicMainnet, command, payload)
	data, err := msg.Serialize()
	if err != nil {
		return err
	}
	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err = p.conn.Write(data); err != nil {
		return err
	}
	monitoring.GetGlobalMetrics().RecordBytesSent(uint64(len(data)))
	return nil
}

// readLoop consumes wire messages during Ready and dispatches per §4.2.
func (p *Peer) readLoop() {
	defer p.wg.Done()

	reader := bufio.NewReader(p.conn)

	for {
		select {
		case <-p.quit:
			return
		default:
		}

		p.conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		msg, err := protocol.Deserialize(reader)
		if err != nil {
			if err != io.EOF {
				p.log.Warnf("read error: %v", err)
			}
			p.closeSession(err)
			return
		}

		monitoring.GetGlobalMetrics().RecordMessageReceived()
		monitoring.GetGlobalMetrics().RecordBytesReceived(uint64(len(msg.Payload)))

		if err := p.dispatch(msg); err != nil {
			p.log.Warnf("decode error for %s: %v", msg.Command, err)
			p.closeSession(err)
			return
		}
	}
}

func (p *Peer) dispatch(msg *protocol.Message) error {
	switch msg.Command {
	case protocol.CmdPing:
		ping, err := protocol.DeserializePing(msg.Payload)
		if err != nil {
			return err
		}
		return p.writeMessage(protocol.CmdPong, protocol.NewPongMessage(ping.Nonce))

	case protocol.CmdAddr:
		addr, err := protocol.DeserializeAddr(msg.Payload)
		if err != nil {
			return err
		}
		p.emit(AddressesEvent{Addresses: addr.Addresses})

	case protocol.CmdInv:
		inv, err := protocol.DeserializeInv(msg.Payload)
		if err != nil {
			return err
		}
		p.emit(InvEvent{Endpoint: p.addr, Items: inv.Inventory})

	case protocol.CmdHeaders:
		headers, err := protocol.DeserializeHeaders(msg.Payload)
		if err != nil {
			return err
		}
		p.emit(HeadersEvent{Endpoint: p.addr, Headers: headers.Headers})

	case protocol.CmdBlock:
		block, err := serialization.DeserializeBlock(msg.Payload)
		if err != nil {
			return err
		}
		p.emit(BlockEvent{Block: block})

	case protocol.CmdTx:
		tx, err := serialization.DeserializeTransaction(bytes.NewReader(msg.Payload))
		if err != nil {
			return err
		}
		p.emit(TxEvent{Tx: tx})

	case protocol.CmdGetData, protocol.CmdGetBlocks, protocol.CmdGetHeaders,
		protocol.CmdMempool, protocol.CmdGetAddr, protocol.CmdNotFound, protocol.CmdPong:
		p.log.Debugf("received %s, no response in this iteration", msg.Command)

	default:
		p.log.Debugf("unhandled message %s", msg.Command)
	}

	return nil
}

func (p *Peer) emit(ev Event) {
	select {
	case p.Events <- ev:
	case <-p.quit:
	}
}

// writeLoop drains the command channel and writes outgoing wire requests.
func (p *Peer) writeLoop() {
	defer p.wg.Done()
	for {
		select {
		case cmd := <-p.Commands:
			if err := p.sendCommand(cmd); err != nil {
				p.log.Warnf("write error: %v", err)
				p.closeSession(err)
				return
			}
			monitoring.GetGlobalMetrics().RecordMessageSent()
		case <-p.quit:
			return
		}
	}
}

func (p *Peer) sendCommand(cmd Command) error {
	switch c := cmd.(type) {
	case GetHeadersCommand:
		return p.writeMessage(protocol.CmdGetHeaders, protocol.NewGetHeadersMessage(c.Locator, c.HashStop))
	case GetDataCommand:
		gd := protocol.NewGetDataMessage()
		gd.Inventory = c.Items
		return p.writeMessage(protocol.CmdGetData, gd)
	default:
		return fmt.Errorf("unknown command type %T", cmd)
	}
}

// closeSession implements the Closed phase's CloseThread teardown: emit the
// event and wait for the consumer's ack before releasing the socket and
// signalling quit to the sibling loop.
func (p *Peer) closeSession(reason error) {
	p.closeOnce.Do(func() {
		ack := make(chan struct{})
		p.emit(CloseThreadEvent{Endpoint: p.addr, Reason: reason, Ack: ack})
		<-ack
		if p.conn != nil {
			p.conn.Close()
		}
		close(p.quit)
	})
}

// emitClose is used for failures before Ready (connect/handshake failure),
// where there is no consumer goroutine relying on the ack yet; it still
// honors the CloseThread contract for a uniform shutdown signal.
func (p *Peer) emitClose(reason error) {
	ack := make(chan struct{})
	select {
	case p.Events <- CloseThreadEvent{Endpoint: p.addr, Reason: reason, Ack: ack}:
		<-ack
	default:
	}
}

// Close requests an immediate teardown of an active session through the
// same CloseThread handshake as a socket error.
func (p *Peer) Close() {
	p.closeSession(fmt.Errorf("closed by manager"))
}
