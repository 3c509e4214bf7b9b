package staking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promTotalStaked = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "splstake",
		Name:      "pool_staked_total",
	})
	promTotalWeighted = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "splstake",
		Name:      "pool_weighted_total",
	})
	promAverageWeight = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "splstake",
		Name:      "pool_average_weight",
	})
	promRewardPools = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "splstake",
		Name:      "pool_reward_pool_count",
	})
	promTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "splstake",
		Name:      "transactions_total",
		Help:      "Transactions submitted by operation and outcome",
	}, []string{"operation", "outcome"})
)
