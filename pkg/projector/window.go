package projector

import (
	"bytes"
	"fmt"
	"os"

	"github.com/relaynode/btcindexer/pkg/serialization"
	"github.com/relaynode/btcindexer/pkg/types"
)

// dbWindow is the bounded FIFO of block hashes currently materialized in
// the relational tables (§4.6's S). Index 0 is the oldest entry.
type dbWindow struct {
	hashes []types.Hash
}

func loadWindow(path string) (*dbWindow, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &dbWindow{}, nil
	}
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(data)
	count, err := serialization.ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("corrupt db window sidecar: %w", err)
	}

	w := &dbWindow{hashes: make([]types.Hash, count)}
	for i := uint64(0); i < count; i++ {
		if _, err := r.Read(w.hashes[i][:]); err != nil {
			return nil, fmt.Errorf("corrupt db window sidecar: %w", err)
		}
	}
	return w, nil
}

func (w *dbWindow) save(path string) error {
	var buf bytes.Buffer
	if err := serialization.WriteVarInt(&buf, uint64(len(w.hashes))); err != nil {
		return err
	}
	for _, h := range w.hashes {
		buf.Write(h[:])
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (w *dbWindow) push(h types.Hash) {
	w.hashes = append(w.hashes, h)
}

func (w *dbWindow) popFront() (types.Hash, bool) {
	if len(w.hashes) == 0 {
		return types.Hash{}, false
	}
	h := w.hashes[0]
	w.hashes = w.hashes[1:]
	return h, true
}

func (w *dbWindow) contains(h types.Hash) bool {
	for _, x := range w.hashes {
		if x == h {
			return true
		}
	}
	return false
}

func (w *dbWindow) len() int {
	return len(w.hashes)
}
