package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estoque",
		Subsystem: "rpc",
		Name:      "actions_total",
		Help:      "RPC actions processed, by action and outcome.",
	}, []string{"action", "outcome"})

	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "estoque",
		Subsystem: "rpc",
		Name:      "action_duration_seconds",
		Help:      "RPC action processing time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})
)
