// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvestigationsTotal counts finished synchronous pipeline runs by
	// outcome: cached, completed, failed.
	InvestigationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inquest_investigations_total",
		Help: "Investigation pipeline runs by outcome.",
	}, []string{"outcome"})

	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inquest_jobs_submitted_total",
		Help: "Asynchronous investigation jobs submitted.",
	})

	// BenignLookups counts single-hash benign checks by resolution:
	// cortex_xdr, nsrl, miss, invalid.
	BenignLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inquest_benign_lookups_total",
		Help: "Benign-hash cache lookups by resolution tier.",
	}, []string{"tier"})

	// CorrelationErrors counts degraded indicator-store batch calls by kind:
	// hash, ip, technique, cve.
	CorrelationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inquest_correlation_errors_total",
		Help: "Indicator store batch calls degraded to neutral results.",
	}, []string{"kind"})
)
