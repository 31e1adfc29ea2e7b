package pricetrack

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ledgerOpsTotal counts ledger mutations by operation and result
	ledgerOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricetrack_ledger_operations_total",
		Help: "Ledger mutations by operation and result",
	}, []string{"operation", "result"})

	// ledgerConsistencyAborts counts reverts refused by an integrity check
	ledgerConsistencyAborts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricetrack_ledger_consistency_aborts_total",
		Help: "Reverts aborted by an integrity check, by check",
	}, []string{"check"})
)

func observeLedgerOp(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ledgerOpsTotal.WithLabelValues(operation, result).Inc()
}
