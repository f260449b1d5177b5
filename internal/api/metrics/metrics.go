// Package metrics defines and registers all custom Prometheus metrics for the
// identity service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Login metrics ─────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts by outcome.
// Labels:
//   - outcome: "success" or the public error code (e.g. "WRONG_PASSWORD")
//   - role: the primary role on success, "none" otherwise
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by outcome and primary role.",
	},
	[]string{"outcome", "role"},
)

// LoginDuration measures end-to-end login latency, password hashing included.
var LoginDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "login_duration_seconds",
		Help:      "Duration of login handling from request to response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// RoleTokensIssuedTotal counts per-role token pairs minted for role switching.
// Label:
//   - role: CLIENT or TRADER
var RoleTokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_tokens_issued_total",
		Help:      "Total number of per-role token pairs issued at login.",
	},
	[]string{"role"},
)

// ── Registration metrics ──────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts by outcome.
// Labels:
//   - outcome: "success" or the public error code (e.g. "EMAIL_TAKEN")
//   - linked: "true" when the new client was linked to an existing trader
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of client registrations, by outcome.",
	},
	[]string{"outcome", "linked"},
)

// ── Last-login dispatcher metrics ─────────────────────────────────────────────

// LastLoginQueueDepth tracks pending last-login writes in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var LastLoginQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_login_queue_depth",
		Help:      "Current number of last-login writes pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// LastLoginWriteErrorsTotal counts last-login writes that failed.
var LastLoginWriteErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "last_login_write_errors_total",
		Help:      "Total number of last-login writes that failed.",
	},
)
