package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xpulse/pkg/logger"
)

var (
	Searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xpulse_searches_total",
		Help: "Search requests issued, per keyword",
	}, []string{"keyword"})
	PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xpulse_pages_fetched_total",
		Help: "Result pages fetched across all keywords",
	})
	PostsScored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xpulse_posts_scored_total",
		Help: "Posts scored, per sentiment label",
	}, []string{"label"})
	RateLimitHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xpulse_rate_limit_hits_total",
		Help: "Rate-limit responses encountered",
	})
	Rotations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xpulse_account_rotations_total",
		Help: "Account rotations performed",
	})
	LoginAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xpulse_login_attempts_total",
		Help: "Credential login attempts",
	})
	KeywordErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xpulse_keyword_errors_total",
		Help: "Keywords that ended with a terminal error",
	})
	HarvestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "xpulse_harvest_duration_seconds",
		Help:    "Full harvest run duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		Searches, PagesFetched, PostsScored, RateLimitHits,
		Rotations, LoginAttempts, KeywordErrors, HarvestDuration,
	)
}

// StartServer exposes /metrics on addr. Empty addr disables the listener.
// A bind failure is logged, not fatal; the harvest runs without metrics.
func StartServer(addr string, log logger.Logger) {
	if addr == "" {
		return
	}
	if log == nil {
		log = logger.GetLogger()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.ErrorWithFields("metrics server failed", map[string]interface{}{
				"addr":  addr,
				"error": err.Error(),
			})
		}
	}()
}

// ObserveHarvestDuration records a run duration.
func ObserveHarvestDuration(start time.Time) {
	HarvestDuration.Observe(time.Since(start).Seconds())
}
