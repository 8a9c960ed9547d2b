// Package metrics exposes the registry's prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storyhub"

type CounterVec struct {
	counters *prometheus.CounterVec
}

func newCounterVec(name, help string, labels ...string) *CounterVec {
	cc := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, labels)
	prometheus.MustRegister(cc)
	return &CounterVec{counters: cc}
}

func (c *CounterVec) Inc(labels ...string) {
	c.counters.WithLabelValues(labels...).Inc()
}

// With returns the counter for one label combination
func (c *CounterVec) With(labels ...string) prometheus.Counter {
	return c.counters.WithLabelValues(labels...)
}

func (c *CounterVec) Add(count float64, labels ...string) {
	c.counters.WithLabelValues(labels...).Add(count)
}

var (
	BuildsCreated = newCounterVec("builds_created_total",
		"Builds created, by project.", "project")
	BuildsDeleted = newCounterVec("builds_deleted_total",
		"Builds deleted, by project and reason.", "project", "reason")
	ArtifactUploads = newCounterVec("artifact_uploads_total",
		"Artifact uploads, by kind and final status.", "kind", "status")
	CascadeFailures = newCounterVec("cascade_failures_total",
		"Best-effort bookkeeping steps that failed, by operation.", "operation")
	PurgeRuns = newCounterVec("purge_runs_total",
		"Purge sweeps, by outcome.", "outcome")
)

// Handler serves the default registry in the prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
