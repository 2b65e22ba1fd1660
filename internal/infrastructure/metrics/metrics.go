package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	LedgerMutations   *prometheus.CounterVec
	ConflictRetries   prometheus.Counter
	OverdraftWarnings prometheus.Counter
	MutationAmount    prometheus.Histogram

	// Finalization metrics
	BatchesStarted    prometheus.Counter
	BatchesCompleted  prometheus.Counter
	BatchesErrored    *prometheus.CounterVec
	BatchDuration     prometheus.Histogram
	PaymentsFinalized prometheus.Counter

	// Tax metrics
	TaxEntriesWritten prometheus.Counter
	TaxEntryFailures  prometheus.Counter

	// Undo metrics
	SnapshotsCaptured prometheus.Counter
	SnapshotsRestored prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		LedgerMutations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payrun_ledger_mutations_total",
				Help: "Total number of balance mutations by source",
			},
			[]string{"source"},
		),
		ConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payrun_ledger_conflict_retries_total",
			Help: "Total number of optimistic concurrency conflicts retried",
		}),
		OverdraftWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payrun_ledger_overdraft_warnings_total",
			Help: "Total number of mutations that drove a balance negative",
		}),
		MutationAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "payrun_ledger_mutation_amount",
			Help:    "Absolute mutation amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		BatchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payrun_batches_started_total",
			Help: "Total number of finalization batches started",
		}),
		BatchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payrun_batches_completed_total",
			Help: "Total number of finalization batches completed",
		}),
		BatchesErrored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payrun_batches_errored_total",
				Help: "Total number of finalization batches failed, by step",
			},
			[]string{"step"},
		),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "payrun_batch_duration_seconds",
			Help:    "Duration of batch finalization",
			Buckets: prometheus.DefBuckets,
		}),
		PaymentsFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payrun_payments_finalized_total",
			Help: "Total number of payments finalized",
		}),

		TaxEntriesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payrun_tax_entries_written_total",
			Help: "Total number of tax-return entries written",
		}),
		TaxEntryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payrun_tax_entry_failures_total",
			Help: "Total number of tax-return entries that failed to write",
		}),

		SnapshotsCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payrun_undo_snapshots_captured_total",
			Help: "Total number of undo snapshots captured",
		}),
		SnapshotsRestored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "payrun_undo_snapshots_restored_total",
			Help: "Total number of undo snapshots restored",
		}),
	}
}
