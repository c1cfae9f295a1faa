package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// insertDuration tracks the time to write one tree and its closures.
	insertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbor_index_insert_tree_duration_seconds",
		Help:    "Time to insert one tree into the structural index",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	nodesInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbor_index_nodes_inserted_total",
		Help: "Total tree nodes written to the structural index",
	})

	// queryDuration tracks compiled query latency by top-level expression kind.
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arbor_index_query_duration_seconds",
		Help:    "Compiled query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"kind"})

	reconstituted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbor_index_reconstituted_total",
		Help: "Total subtrees rebuilt from the structural index",
	})
)
