package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UnlocksTotal counts purchase attempts by outcome code
	UnlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boatbet",
		Name:      "unlocks_total",
		Help:      "Prediction unlock attempts by result.",
	}, []string{"result"})

	// PointsTransferredTotal counts points moved from buyers to authors
	PointsTransferredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boatbet",
		Name:      "points_transferred_total",
		Help:      "Points moved from buyers to authors.",
	})

	// SettlementsTotal counts settlement attempts by outcome
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boatbet",
		Name:      "settlements_total",
		Help:      "Prediction settlements by outcome (hit, miss, skipped).",
	}, []string{"outcome"})

	// FeedRequestsTotal counts race feed requests by endpoint and status
	FeedRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boatbet",
		Name:      "feed_requests_total",
		Help:      "Race feed requests by endpoint and status.",
	}, []string{"endpoint", "status"})

	// CartOperationsTotal counts cart mutations by operation
	CartOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boatbet",
		Name:      "cart_operations_total",
		Help:      "Cart operations by kind.",
	}, []string{"op"})

	// JobRunsTotal counts scheduled job runs by job and status
	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boatbet",
		Name:      "job_runs_total",
		Help:      "Scheduled job runs by job and status.",
	}, []string{"job", "status"})
)

const (
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeSkipped = "skipped"
)
