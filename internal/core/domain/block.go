package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// RawBlock is an undecoded block object as returned by the sequencer
// endpoint: a JSON-RPC result with hex-encoded numeric fields.
type RawBlock map[string]any

// Number returns the block's own number. Compatibility-mode fetches sort by
// this value, not by request order.
func (b RawBlock) Number() (uint64, error) {
	return b.hexField("number")
}

// Timestamp returns the block timestamp in seconds.
func (b RawBlock) Timestamp() (uint64, error) {
	return b.hexField("timestamp")
}

func (b RawBlock) hexField(name string) (uint64, error) {
	s, ok := b[name].(string)
	if !ok {
		return 0, fmt.Errorf("%w: block missing %s", ErrDecode, name)
	}
	n, err := ParseHexUint64(s)
	if err != nil {
		return 0, fmt.Errorf("%w: block %s: %v", ErrDecode, name, err)
	}
	return n, nil
}

// SequencerBlock is the decoded form of one sequencer block: exactly one
// transaction entry and the state root it produced, both indexed one below
// the block number.
type SequencerBlock struct {
	Number      uint64
	Timestamp   uint64
	Transaction *TransactionEntry
	StateRoot   *StateRootEntry
}

// ParseHexUint64 parses a 0x-prefixed hex quantity.
func ParseHexUint64(hexStr string) (uint64, error) {
	n := new(big.Int)
	if _, ok := n.SetString(strings.TrimPrefix(hexStr, "0x"), 16); !ok {
		return 0, fmt.Errorf("invalid hex: %s", hexStr)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("hex out of range: %s", hexStr)
	}
	return n.Uint64(), nil
}
