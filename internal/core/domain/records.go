package domain

// IndexedRecord is implemented by every entry stored under an index-derived
// key. Indices are zero-based and gapless within a kind.
type IndexedRecord interface {
	RecordIndex() uint64
}

// QueueOrigin identifies how a transaction entered the rollup.
type QueueOrigin string

const (
	QueueOriginSequencer QueueOrigin = "sequencer"
	QueueOriginL1        QueueOrigin = "l1"
)

// EnqueueEntry is a transaction enqueued on the base chain for later
// inclusion by the sequencer.
type EnqueueEntry struct {
	Index       uint64 `json:"index"`
	BlockNumber uint64 `json:"blockNumber"`
	Timestamp   uint64 `json:"timestamp"`
	Target      string `json:"target"`
	Data        string `json:"data"`
	GasLimit    uint64 `json:"gasLimit"`
	Origin      string `json:"origin"`
}

func (e *EnqueueEntry) RecordIndex() uint64 { return e.Index }

// TransactionSignature is the recovered ECDSA signature of a decoded
// sequencer transaction.
type TransactionSignature struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint64 `json:"v"`
}

// DecodedTransaction is the structured form of a sequencer transaction.
// Absent when the raw payload could not be decoded.
type DecodedTransaction struct {
	Nonce    uint64               `json:"nonce"`
	GasPrice string               `json:"gasPrice"`
	GasLimit uint64               `json:"gasLimit"`
	Value    string               `json:"value"`
	Target   string               `json:"target"`
	Data     string               `json:"data"`
	Sig      TransactionSignature `json:"sig"`
}

// TransactionEntry is one rollup transaction, confirmed or unconfirmed.
// Field names are the on-disk contract for existing deployment data.
type TransactionEntry struct {
	Index       uint64              `json:"index"`
	BatchIndex  *uint64             `json:"batchIndex"`
	BlockNumber uint64              `json:"blockNumber"`
	Timestamp   uint64              `json:"timestamp"`
	Data        string              `json:"data"`
	GasLimit    uint64              `json:"gasLimit"`
	Target      string              `json:"target"`
	Origin      *string             `json:"origin"`
	QueueOrigin QueueOrigin         `json:"queueOrigin"`
	QueueIndex  *uint64             `json:"queueIndex"`
	Decoded     *DecodedTransaction `json:"decoded"`
}

func (e *TransactionEntry) RecordIndex() uint64 { return e.Index }

// BatchEntry describes a batch submitted to the base chain. Size and
// PrevTotalElements let a consumer reconstruct the covered index range
// without a join.
type BatchEntry struct {
	Index             uint64 `json:"index"`
	BlockNumber       uint64 `json:"blockNumber"`
	Timestamp         uint64 `json:"timestamp"`
	Submitter         string `json:"submitter"`
	Size              uint64 `json:"size"`
	Root              string `json:"root"`
	PrevTotalElements uint64 `json:"prevTotalElements"`
	ExtraData         string `json:"extraData"`
}

func (e *BatchEntry) RecordIndex() uint64 { return e.Index }

// StateRootEntry is the state root produced by one rollup block.
type StateRootEntry struct {
	Index       uint64  `json:"index"`
	BatchIndex  *uint64 `json:"batchIndex"`
	BlockNumber uint64  `json:"blockNumber"`
	Timestamp   uint64  `json:"timestamp"`
	Value       string  `json:"value"`
}

func (e *StateRootEntry) RecordIndex() uint64 { return e.Index }
