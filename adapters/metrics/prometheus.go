package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/satriahrh/persona-chat/usecase"
)

const namespace = "personachat"

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeTruncated = "truncated"
	OutcomeFallback  = "fallback"
)

// Recorder collects chat metrics.
type Recorder struct {
	requests *prometheus.CounterVec
	rounds   prometheus.Histogram
	duration prometheus.Histogram
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_requests_total",
				Help:      "Chat requests by category, size bucket and outcome.",
			},
			[]string{"category", "bucket", "outcome"},
		),
		rounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "continuation_rounds",
			Help:      "Continuation rounds issued per chat request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Time spent waiting on the completion provider per chat request.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.requests, r.rounds, r.duration)
	return r
}

// Observe records one finished chat request.
func (r *Recorder) Observe(out usecase.Outcome, err error, took time.Duration) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeFallback
	case out.Truncated:
		outcome = OutcomeTruncated
	}
	r.requests.WithLabelValues(string(out.Category), string(out.Bucket), outcome).Inc()
	r.rounds.Observe(float64(out.Rounds))
	r.duration.Observe(took.Seconds())
}
