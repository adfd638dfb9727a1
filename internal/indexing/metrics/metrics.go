package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksIngested tracks total rollup blocks decoded and committed
	BlocksIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "syncer_blocks_ingested_total",
			Help: "Total number of rollup blocks ingested",
		},
	)

	// RecordsWritten tracks stored records per kind
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncer_records_written_total",
			Help: "Total number of records written to the store",
		},
		[]string{"kind"},
	)

	// RPCCalls tracks RPC calls per method
	RPCCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncer_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"method"},
	)

	// RPCErrors tracks RPC errors per method
	RPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncer_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"method"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syncer_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// ChainHeight tracks the sequencer's reported chain height
	ChainHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "syncer_chain_height",
			Help: "Latest block height reported by the sequencer",
		},
	)

	// HighestSynced tracks the ingestion cursor
	HighestSynced = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "syncer_highest_synced_block",
			Help: "Highest block committed by the ingestion loop",
		},
	)

	// SyncErrors tracks ingestion loop iterations that failed
	SyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "syncer_loop_errors_total",
			Help: "Total number of failed ingestion iterations",
		},
	)
)
