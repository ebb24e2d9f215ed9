package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// receiptsSubmitted counts receipts accepted by Ledger.Submit.
	receiptsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipts_submitted_total",
		Help: "Total number of receipts stored in the ledger.",
	})

	// pointsComputed counts scoring passes. With memoization this never
	// exceeds receipts_submitted_total.
	pointsComputed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipt_points_computed_total",
		Help: "Total number of receipt scoring computations.",
	})

	// pointsCacheHits counts points queries served from the cache.
	pointsCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipt_points_cache_hits_total",
		Help: "Total number of points queries answered from the memoized score.",
	})
)

func init() {
	prometheus.MustRegister(receiptsSubmitted, pointsComputed, pointsCacheHits)
}
