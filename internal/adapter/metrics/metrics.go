package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CoreMetrics holds the Prometheus metrics for the tenancy core.
type CoreMetrics struct {
	AuthzDenied         *prometheus.CounterVec
	ConfigCacheHits     prometheus.Counter
	ConfigCacheMisses   prometheus.Counter
	SequencesIssued     prometheus.Counter
	SequenceRetries     prometheus.Counter
	SequenceCollisions  prometheus.Counter
	AuditEntriesWritten prometheus.Counter
	AuditWriteFailures  prometheus.Counter
}

// NewCoreMetrics initializes and registers the metrics against the
// given registerer. Tests pass a fresh prometheus.NewRegistry to avoid
// duplicate registration.
func NewCoreMetrics(reg prometheus.Registerer) *CoreMetrics {
	factory := promauto.With(reg)
	return &CoreMetrics{
		AuthzDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "authz",
			Name:      "denied_total",
			Help:      "Total number of authorization denials by gate.",
		}, []string{"gate"}), // gate: role, finance
		ConfigCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "authz",
			Name:      "config_cache_hits_total",
			Help:      "Total number of tenant config cache hits.",
		}),
		ConfigCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "authz",
			Name:      "config_cache_misses_total",
			Help:      "Total number of tenant config cache misses.",
		}),
		SequencesIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "sequence",
			Name:      "issued_total",
			Help:      "Total number of sequence identifiers issued.",
		}),
		SequenceRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "sequence",
			Name:      "collision_retries_total",
			Help:      "Total number of single-shot retries after an issued identifier was already taken.",
		}),
		SequenceCollisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "sequence",
			Name:      "collisions_total",
			Help:      "Total number of fatal identifier collisions. Non-zero indicates counter corruption.",
		}),
		AuditEntriesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "audit",
			Name:      "entries_written_total",
			Help:      "Total number of audit entries written.",
		}),
		AuditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "audit",
			Name:      "write_failures_total",
			Help:      "Total number of failed audit batch writes. Each one fails the enclosing mutation.",
		}),
	}
}
