// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	decisionAllow       = "allow"
	decisionDeny        = "deny"
	decisionDefaultDeny = "default_deny"
)

var (
	// enforceDuration tracks the latency of Enforce() calls.
	enforceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "libgate_enforce_duration_seconds",
		Help:    "Histogram of access enforcement latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// enforcements counts decisions by outcome.
	enforcements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "libgate_enforcements_total",
		Help: "Total number of access enforcement decisions",
	}, []string{"decision"})

	// policyReloads counts snapshot reloads by trigger.
	policyReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "libgate_policy_reloads_total",
		Help: "Total number of policy snapshot reloads",
	}, []string{"trigger"})

	// policyRules reports the size of the current snapshot.
	policyRules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "libgate_policy_rules",
		Help: "Number of policy rules in the in-memory snapshot",
	})
)

func recordEnforcement(duration time.Duration, decision string) {
	enforceDuration.Observe(duration.Seconds())
	enforcements.WithLabelValues(decision).Inc()
}

func recordReload(trigger string, ruleCount int) {
	policyReloads.WithLabelValues(trigger).Inc()
	policyRules.Set(float64(ruleCount))
}
