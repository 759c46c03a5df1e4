package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hazmap_http_requests_total",
		Help: "HTTP requests processed, by method and status code.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hazmap_http_request_duration_seconds",
		Help:    "HTTP request handling latency.",
		Buckets: prometheus.DefBuckets,
	})
)
