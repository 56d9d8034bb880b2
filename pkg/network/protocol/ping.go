package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// PingMessage carries an 8-byte nonce the peer must echo back in a pong.
type PingMessage struct {
	Nonce uint64
}

// NewPingMessage creates a ping with the given nonce.
func NewPingMessage(nonce uint64) *PingMessage {
	return &PingMessage{Nonce: nonce}
}

// Serialize converts ping message to bytes.
func (p *PingMessage) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, p.Nonce); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializePing reads a ping message from bytes.
func DeserializePing(data []byte) (*PingMessage, error) {
	buf := bytes.NewReader(data)
	p := &PingMessage{}
	if err := binary.Read(buf, binary.LittleEndian, &p.Nonce); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PingMessage) String() string {
	return fmt.Sprintf("Ping{Nonce: %d}", p.Nonce)
}

// PongMessage echoes the nonce from the ping it answers.
type PongMessage struct {
	Nonce uint64
}

// NewPongMessage creates a pong echoing nonce.
func NewPongMessage(nonce uint64) *PongMessage {
	return &PongMessage{Nonce: nonce}
}

// Serialize converts pong message to bytes.
func (p *PongMessage) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, p.Nonce); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializePong reads a pong message from bytes.
func DeserializePong(data []byte) (*PongMessage, error) {
	buf := bytes.NewReader(data)
	p := &PongMessage{}
	if err := binary.Read(buf, binary.LittleEndian, &p.Nonce); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PongMessage) String() string {
	return fmt.Sprintf("Pong{Nonce: %d}", p.Nonce)
}
