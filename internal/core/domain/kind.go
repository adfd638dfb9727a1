package domain

// Kind is the namespace of a record family inside the ordered store. The
// string value is part of the persisted key layout and must never change
// for an existing deployment.
type Kind string

const (
	KindEnqueue          Kind = "enqueue"
	KindTransaction      Kind = "transaction"
	KindTransactionBatch Kind = "batch:transaction"
	KindStateRoot        Kind = "stateroot"
	KindStateRootBatch   Kind = "batch:stateroot"

	// Unconfirmed entries ingested from the sequencer ahead of base-chain
	// confirmation. Idempotent overwrites by index.
	KindUnconfirmedTransaction Kind = "unconfirmed:transaction"
	KindUnconfirmedStateRoot   Kind = "unconfirmed:stateroot"

	// KindUnconfirmed carries only a latest pointer: the highest sequencer
	// block the ingestion loop has fully committed. No indexed records are
	// ever written under it.
	KindUnconfirmed Kind = "unconfirmed"
)

// Kinds lists every namespace with a latest pointer, in display order.
var Kinds = []Kind{
	KindEnqueue,
	KindTransaction,
	KindTransactionBatch,
	KindStateRoot,
	KindStateRootBatch,
	KindUnconfirmedTransaction,
	KindUnconfirmedStateRoot,
	KindUnconfirmed,
}

func (k Kind) String() string {
	return string(k)
}
