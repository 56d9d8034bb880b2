package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// TimestampedAddress is one entry of an addr message: the unix time the
// sender last saw activity from this address, plus the address itself.
type TimestampedAddress struct {
	Timestamp uint32
	Addr      NetAddress
}

// AddrMessage carries a list of peer addresses, sent in response to getaddr
// or gossiped unsolicited.
type AddrMessage struct {
	Addresses []TimestampedAddress
}

// NewAddrMessage creates an empty addr message.
func NewAddrMessage() *AddrMessage {
	return &AddrMessage{Addresses: make([]TimestampedAddress, 0)}
}

// AddAddress appends a timestamped address.
func (a *AddrMessage) AddAddress(timestamp uint32, addr NetAddress) {
	a.Addresses = append(a.Addresses, TimestampedAddress{Timestamp: timestamp, Addr: addr})
}

// Serialize converts addr message to bytes.
func (a *AddrMessage) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := writeVarInt(buf, uint64(len(a.Addresses))); err != nil {
		return nil, err
	}

	for _, ta := range a.Addresses {
		if err := binary.Write(buf, binary.LittleEndian, ta.Timestamp); err != nil {
			return nil, err
		}
		if err := writeNetAddress(buf, ta.Addr); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// DeserializeAddr reads an addr message from bytes.
func DeserializeAddr(data []byte) (*AddrMessage, error) {
	buf := bytes.NewReader(data)
	a := NewAddrMessage()

	count, err := readVarInt(buf)
	if err != nil {
		return nil, err
	}

	for i := uint64(0); i < count; i++ {
		var ts uint32
		if err := binary.Read(buf, binary.LittleEndian, &ts); err != nil {
			return nil, err
		}
		addr, err := readNetAddress(buf)
		if err != nil {
			return nil, err
		}
		a.Addresses = append(a.Addresses, TimestampedAddress{Timestamp: ts, Addr: addr})
	}

	return a, nil
}

func (a *AddrMessage) String() string {
	return fmt.Sprintf("Addr{Count: %d}", len(a.Addresses))
}
