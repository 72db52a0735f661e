package mail

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// dispatchDuration measures how long sending a single email takes, by
// transport ("smtp" or "log").
var dispatchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "auth",
		Subsystem: "mail",
		Name:      "dispatch_duration_seconds",
		Help:      "Duration of outbound email delivery.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"driver"},
)
