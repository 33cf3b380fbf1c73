// Package observability holds the Prometheus collectors and logging setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "octofit",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labeled by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "octofit",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	activitiesLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "octofit",
		Subsystem: "activities",
		Name:      "logged_total",
		Help:      "Activities created, labeled by activity type.",
	}, []string{"activity_type"})

	rankingRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "octofit",
		Subsystem: "leaderboard",
		Name:      "ranking_runs_total",
		Help:      "Ranking passes, labeled by outcome.",
	}, []string{"outcome"})

	rankingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "octofit",
		Subsystem: "leaderboard",
		Name:      "ranking_duration_seconds",
		Help:      "Time spent computing and persisting ranks, lock wait included.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	rankedTeams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "octofit",
		Subsystem: "leaderboard",
		Name:      "ranked_teams",
		Help:      "Number of leaderboards in the most recent ranking pass.",
	})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, activitiesLogged, rankingRuns, rankingDuration, rankedTeams)
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func ActivityLogged(activityType string) {
	activitiesLogged.WithLabelValues(activityType).Inc()
}

// RankingCompleted records a ranking pass; outcome is "ok", "timeout" or "error".
func RankingCompleted(outcome string, teams int, elapsed time.Duration) {
	rankingRuns.WithLabelValues(outcome).Inc()
	rankingDuration.Observe(elapsed.Seconds())
	if outcome == "ok" {
		rankedTeams.Set(float64(teams))
	}
}
