package protocol

import (
	"bytes"
	"fmt"

	"github.com/relaynode/btcindexer/pkg/serialization"
	"github.com/relaynode/btcindexer/pkg/types"
)

// HeadersMessage carries a batch of lone headers (header plus transaction
// count, no bodies) sent in response to getheaders.
type HeadersMessage struct {
	Headers []types.LoneBlockHeader
}

// NewHeadersMessage creates an empty headers message.
func NewHeadersMessage() *HeadersMessage {
	return &HeadersMessage{Headers: make([]types.LoneBlockHeader, 0)}
}

// AddHeader appends a lone header.
func (h *HeadersMessage) AddHeader(header types.BlockHeader, txCount uint64) {
	h.Headers = append(h.Headers, types.LoneBlockHeader{Header: header, TxCount: txCount})
}

// Serialize converts headers message to bytes.
func (h *HeadersMessage) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := writeVarInt(buf, uint64(len(h.Headers))); err != nil {
		return nil, err
	}

	for _, lh := range h.Headers {
		headerBytes, err := serialization.SerializeBlockHeader(&lh.Header)
		if err != nil {
			return nil, err
		}
		buf.Write(headerBytes)
		if err := writeVarInt(buf, lh.TxCount); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// DeserializeHeaders reads a headers message from bytes.
func DeserializeHeaders(data []byte) (*HeadersMessage, error) {
	buf := bytes.NewReader(data)
	h := NewHeadersMessage()

	count, err := readVarInt(buf)
	if err != nil {
		return nil, err
	}

	for i := uint64(0); i < count; i++ {
		header, err := serialization.DeserializeBlockHeader(buf)
		if err != nil {
			return nil, err
		}
		txCount, err := readVarInt(buf)
		if err != nil {
			return nil, err
		}
		h.Headers = append(h.Headers, types.LoneBlockHeader{Header: *header, TxCount: txCount})
	}

	return h, nil
}

func (h *HeadersMessage) String() string {
	return fmt.Sprintf("Headers{Count: %d}", len(h.Headers))
}
