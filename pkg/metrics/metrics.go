/*
Copyright 2025 The WARaft Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics holds the Prometheus instrumentation for the shard front
// end. Recording functions are safe to call whether or not Register has run;
// unregistered metrics simply go nowhere.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Laguna-Games/waraft/pkg/types"
)

const (
	// --- Subsystems ---
	AcceptorSubsystem = "raft_acceptor"
	QueueSubsystem    = "raft_queue"

	// --- Submission kinds ---
	KindCommit = "commit"
	KindRead   = "read"

	// --- Reservation tiers ---
	TierCommit = "commit"
	TierApply  = "apply"
	TierRead   = "read"
)

var (
	// ShardKindLabels identify one shard and one submission kind.
	ShardKindLabels = []string{"shard", "kind"}

	// AdmissionLatencyBuckets cover a blocking in-process collaborator call,
	// from 10us to 1s.
	AdmissionLatencyBuckets = []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025,
		0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
	}
)

var (
	admissionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: AcceptorSubsystem,
			Name:      "admission_decision_duration_seconds",
			Help:      "Latency of the admission decision for one submission, recorded on every branch.",
			Buckets:   AdmissionLatencyBuckets,
		},
		ShardKindLabels,
	)

	rejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: AcceptorSubsystem,
			Name:      "rejected_total",
			Help:      "Counter of submissions rejected at admission, broken out by shard, kind, and decision.",
		},
		append(ShardKindLabels, "decision"),
	)

	pendingReservations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: QueueSubsystem,
			Name:      "pending_reservations",
			Help:      "In-flight admission reservations per shard and tier.",
		},
		[]string{"shard", "tier"},
	)
)

var registerMetrics sync.Once

// Register registers all metrics with the default Prometheus registry.
// It is idempotent.
func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(admissionLatency)
		prometheus.MustRegister(rejectedTotal)
		prometheus.MustRegister(pendingReservations)
	})
}

// ObserveAdmissionLatency records the duration of one admission decision.
func ObserveAdmissionLatency(shard types.ShardKey, kind string, d time.Duration) {
	admissionLatency.WithLabelValues(shard.String(), kind).Observe(d.Seconds())
}

// IncRejected counts one rejected submission.
func IncRejected(shard types.ShardKey, kind string, decision types.Decision) {
	rejectedTotal.WithLabelValues(shard.String(), kind, decision.String()).Inc()
}

// SetPendingReservations reports the current reservation count for one tier.
func SetPendingReservations(shard types.ShardKey, tier string, n int) {
	pendingReservations.WithLabelValues(shard.String(), tier).Set(float64(n))
}
