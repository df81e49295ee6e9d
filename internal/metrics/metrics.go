package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	TasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_tasks_total",
			Help: "Tasks by source and lifecycle event",
		},
		[]string{"source", "event"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "summarizer_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage", "outcome"},
	)

	UpstreamAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_upstream_attempts_total",
			Help: "Outbound calls to rate limited providers",
		},
		[]string{"provider", "outcome"},
	)

	RateLimitWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "summarizer_rate_limit_wait_seconds",
			Help:    "Time spent waiting on the request budget",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "summarizer_queue_depth",
			Help: "Jobs waiting for a worker",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		TasksTotal,
		StageDuration,
		UpstreamAttempts,
		RateLimitWait,
		QueueDepth,
	)
}

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// Middleware counts requests per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		RequestsTotal.WithLabelValues(c.Method()+" "+c.Route().Path, strconv.Itoa(status)).Inc()
		return err
	}
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StageDuration.WithLabelValues(stage, outcome).Observe(time.Since(start).Seconds())
}
