package decode

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/indexing/metrics"
	"github.com/vietddude/syncer/internal/infra/storage"
)

// SequencerDecoder converts raw sequencer blocks into unconfirmed entries.
// A sequencer block carries exactly one transaction and the state root it
// produced; both map to index blockNumber-1 because the genesis block has
// no transaction.
type SequencerDecoder struct {
	chainID uint64
}

// NewSequencerDecoder creates a decoder. The chain id recovers the parity
// bit from EIP-155 signature v values.
func NewSequencerDecoder(chainID uint64) *SequencerDecoder {
	return &SequencerDecoder{chainID: chainID}
}

// ParseBlock decodes one raw block. Malformed payloads fail with
// domain.ErrDecode; the caller's error policy decides what happens next.
func (d *SequencerDecoder) ParseBlock(raw domain.RawBlock) (*domain.SequencerBlock, error) {
	number, err := raw.Number()
	if err != nil {
		return nil, err
	}
	if number == 0 {
		return nil, fmt.Errorf("%w: genesis block has no transaction", domain.ErrDecode)
	}
	timestamp, err := raw.Timestamp()
	if err != nil {
		return nil, err
	}

	txs, ok := raw["transactions"].([]any)
	if !ok || len(txs) != 1 {
		return nil, fmt.Errorf("%w: block %d: expected exactly one transaction, got %d",
			domain.ErrDecode, number, len(txs))
	}
	rawTx, ok := txs[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: block %d: transaction is not an object", domain.ErrDecode, number)
	}

	stateRoot := getString(raw["stateRoot"])
	if stateRoot == "" {
		return nil, fmt.Errorf("%w: block %d: missing stateRoot", domain.ErrDecode, number)
	}

	index := number - 1
	entry, err := d.parseTransaction(rawTx, index, number, timestamp)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", number, err)
	}

	return &domain.SequencerBlock{
		Number:      number,
		Timestamp:   timestamp,
		Transaction: entry,
		StateRoot: &domain.StateRootEntry{
			Index:       index,
			BlockNumber: number,
			Timestamp:   timestamp,
			Value:       stateRoot,
		},
	}, nil
}

// StoreBlock persists the decoded transaction and state root for one block.
// Two per-kind batch writes; replaying a block overwrites both entries
// byte-identically, so a crash between the writes heals on retry.
func (d *SequencerDecoder) StoreBlock(ctx context.Context, block *domain.SequencerBlock, writer storage.RecordWriter) error {
	if err := writer.PutIndexed(ctx, domain.KindUnconfirmedTransaction,
		[]domain.IndexedRecord{block.Transaction}); err != nil {
		return fmt.Errorf("store transaction %d: %w", block.Transaction.Index, err)
	}
	if err := writer.PutIndexed(ctx, domain.KindUnconfirmedStateRoot,
		[]domain.IndexedRecord{block.StateRoot}); err != nil {
		return fmt.Errorf("store state root %d: %w", block.StateRoot.Index, err)
	}
	metrics.BlocksIngested.Inc()
	return nil
}

func (d *SequencerDecoder) parseTransaction(raw map[string]any, index, blockNumber, blockTimestamp uint64) (*domain.TransactionEntry, error) {
	queueOrigin := domain.QueueOrigin(getString(raw["queueOrigin"]))
	if queueOrigin != domain.QueueOriginSequencer && queueOrigin != domain.QueueOriginL1 {
		return nil, fmt.Errorf("%w: unknown queue origin %q", domain.ErrDecode, queueOrigin)
	}

	gasLimit, err := hexUint64OrZero(raw["gas"])
	if err != nil {
		return nil, fmt.Errorf("%w: gas: %v", domain.ErrDecode, err)
	}

	// The enqueued L1 context rides on the transaction itself; blocks
	// replayed from other sources may omit it, so the block's own fields
	// are the fallback.
	originBlock := blockNumber
	if s := getString(raw["l1BlockNumber"]); s != "" {
		originBlock, err = domain.ParseHexUint64(s)
		if err != nil {
			return nil, fmt.Errorf("%w: l1BlockNumber: %v", domain.ErrDecode, err)
		}
	}
	originTimestamp := blockTimestamp
	if s := getString(raw["l1Timestamp"]); s != "" {
		originTimestamp, err = domain.ParseHexUint64(s)
		if err != nil {
			return nil, fmt.Errorf("%w: l1Timestamp: %v", domain.ErrDecode, err)
		}
	}

	entry := &domain.TransactionEntry{
		Index:       index,
		BlockNumber: originBlock,
		Timestamp:   originTimestamp,
		Data:        getString(raw["input"]),
		GasLimit:    gasLimit,
		Target:      getString(raw["to"]),
		QueueOrigin: queueOrigin,
	}

	if origin := getString(raw["l1TxOrigin"]); origin != "" {
		entry.Origin = &origin
	}

	switch queueOrigin {
	case domain.QueueOriginL1:
		queueIndex, err := hexUint64OrZero(raw["queueIndex"])
		if err != nil {
			return nil, fmt.Errorf("%w: queueIndex: %v", domain.ErrDecode, err)
		}
		entry.QueueIndex = &queueIndex
	case domain.QueueOriginSequencer:
		decoded, err := d.decodeSignedTransaction(raw)
		if err != nil {
			return nil, err
		}
		entry.Decoded = decoded
	}

	return entry, nil
}

// decodeSignedTransaction extracts the signed fields of a sequencer-origin
// transaction. An absent or unparseable signature is unrecoverable.
func (d *SequencerDecoder) decodeSignedTransaction(raw map[string]any) (*domain.DecodedTransaction, error) {
	r := getString(raw["r"])
	s := getString(raw["s"])
	vHex := getString(raw["v"])
	if r == "" || s == "" || vHex == "" {
		return nil, fmt.Errorf("%w: sequencer transaction missing signature", domain.ErrDecode)
	}
	v, err := domain.ParseHexUint64(vHex)
	if err != nil {
		return nil, fmt.Errorf("%w: signature v: %v", domain.ErrDecode, err)
	}

	nonce, err := hexUint64OrZero(raw["nonce"])
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", domain.ErrDecode, err)
	}
	gasLimit, err := hexUint64OrZero(raw["gas"])
	if err != nil {
		return nil, fmt.Errorf("%w: gas: %v", domain.ErrDecode, err)
	}

	return &domain.DecodedTransaction{
		Nonce:    nonce,
		GasPrice: hexToDecimal(getString(raw["gasPrice"])),
		GasLimit: gasLimit,
		Value:    hexToDecimal(getString(raw["value"])),
		Target:   getString(raw["to"]),
		Data:     getString(raw["input"]),
		Sig: domain.TransactionSignature{
			R: r,
			S: s,
			V: d.recoveryParity(v),
		},
	}, nil
}

// recoveryParity strips the EIP-155 chain offset (or the legacy 27/28
// offset) down to the 0/1 parity bit.
func (d *SequencerDecoder) recoveryParity(v uint64) uint64 {
	if offset := 2*d.chainID + 35; v >= offset {
		return v - offset
	}
	if v >= 27 {
		return v - 27
	}
	return v
}

func hexUint64OrZero(v any) (uint64, error) {
	s := getString(v)
	if s == "" || s == "0x" {
		return 0, nil
	}
	return domain.ParseHexUint64(s)
}

func hexToDecimal(hexStr string) string {
	if hexStr == "" || hexStr == "0x" {
		return "0"
	}
	n := new(big.Int)
	if _, ok := n.SetString(strings.TrimPrefix(hexStr, "0x"), 16); !ok {
		return "0"
	}
	return n.String()
}

func getString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
