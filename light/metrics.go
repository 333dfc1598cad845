package light

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MetricsSubsystem is a subsystem shared by all metrics exposed by this
// package.
const MetricsSubsystem = "light"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of verifications, by verdict.
	Verifications metrics.Counter `metrics_labels:"verdict"`
	// Time spent in a single verification.
	VerificationDuration metrics.Histogram
	// Number of commit signatures checked.
	SignaturesChecked metrics.Counter
	// Number of times batch verification failed and signatures were checked
	// one by one.
	BatchFallbacks metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Verifications: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "verifications_total",
			Help:      "Number of verifications, by verdict.",
		}, append(labels, "verdict")).With(labelsAndValues...),
		VerificationDuration: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "verification_duration_seconds",
			Help:      "Time spent in a single verification.",
			Buckets:   stdprometheus.ExponentialBuckets(0.0001, 4, 10),
		}, labels).With(labelsAndValues...),
		SignaturesChecked: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "signatures_checked_total",
			Help:      "Number of commit signatures checked.",
		}, labels).With(labelsAndValues...),
		BatchFallbacks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "batch_verification_fallbacks_total",
			Help:      "Number of failed batch verifications re-checked one signature at a time.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Verifications:        discard.NewCounter(),
		VerificationDuration: discard.NewHistogram(),
		SignaturesChecked:    discard.NewCounter(),
		BatchFallbacks:       discard.NewCounter(),
	}
}
