// Package metrics defines the custom Prometheus metrics for the InsureX auth
// API. It is the single source of truth for metric names, labels, and help
// strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// Result label values shared by the counters below.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// ── Credential metrics ───────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "failure" (bad credential) or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success", "conflict" (email taken), "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// ── Token metrics ────────────────────────────────────────────────────────────

// TokenVerificationsTotal counts bearer tokens seen by the authentication gate.
// Label:
//   - result: "valid", "invalid" or "expired"
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of bearer tokens verified, by result.",
	},
	[]string{"result"},
)

// ── Password reset metrics ───────────────────────────────────────────────────

// PasswordResetsTotal counts password-reset operations.
// Labels:
//   - stage: "initiate", "validate" or "reset"
//   - result: "success" or the failure reason (e.g. "not_found", "expired", "used")
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password-reset operations, by stage and result.",
	},
	[]string{"stage", "result"},
)
