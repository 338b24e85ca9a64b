package metrics

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// all metrics and middlewares for the REST API and the wallet security core
var (
	// to prevent metrics from being initialized multiple times
	isMetricsInitVar uint32 = 0

	// active REST API connections
	activeRESTConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_rest_connections",
			Help: "Number of active REST API connections",
		},
	)

	// response times for REST APIs
	responseTimeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_time_milliseconds",
			Help:    "REST API response time distributions",
			Buckets: []float64{1, 10, 50, 100, 200, 300, 400, 500},
		},
		[]string{"method", "endpoint"},
	)

	// Number of requests processed by REST API
	RESTRequestMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_requests_processed_total",
		Help: "The total number of processed REST requests",
	}, []string{"method", "endpoint"})

	// Requests rejected because the window quota was exhausted
	RateLimitRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "The total number of requests rejected by the rate limiter",
	}, []string{"class"})

	// Identities escalated to a temporary hard block
	RateLimitBlocksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_blocks_total",
		Help: "The total number of abuse blocks created by the rate limiter",
	}, []string{"class"})

	// Withdrawals denied by a volume ceiling
	WithdrawalsDeniedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "withdrawals_denied_total",
		Help: "The total number of withdrawals denied by a limit ceiling",
	})

	// Withdrawals accepted and queued for settlement
	WithdrawalsAcceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "withdrawals_accepted_total",
		Help: "The total number of accepted withdrawal requests",
	})

	// Secret authentication failures (tampered or corrupted ciphertext)
	DecryptionFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "secret_decryption_failures_total",
		Help: "The total number of failed secret authentications",
	})
)

func setIsMetricsInit() {
	atomic.StoreUint32(&isMetricsInitVar, 1)
}

func isMetricsInit() bool {
	return atomic.LoadUint32(&isMetricsInitVar) == 1
}

func InitMetrics() {
	if !isMetricsInit() {
		setIsMetricsInit()

		// Metrics have to be registered to be exposed
		prometheus.MustRegister(activeRESTConnections)
		prometheus.MustRegister(responseTimeRESTAPI)
		prometheus.MustRegister(RESTRequestMetricsTotal)
		prometheus.MustRegister(RateLimitRejectionsTotal)
		prometheus.MustRegister(RateLimitBlocksTotal)
		prometheus.MustRegister(WithdrawalsDeniedTotal)
		prometheus.MustRegister(WithdrawalsAcceptedTotal)
		prometheus.MustRegister(DecryptionFailuresTotal)
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Increment the counter for the given endpoint:
		RESTRequestMetricsTotal.WithLabelValues(c.Request.Method, c.FullPath()).Inc()

		// Start timing responseTime histogram
		start := time.Now()

		// Set activeConnections gauge
		activeRESTConnections.Inc()
		defer activeRESTConnections.Dec()

		c.Next()

		// Set responseTime histogram
		latency := time.Since(start)
		responseTimeRESTAPI.WithLabelValues(c.Request.Method, c.Request.URL.Path).Observe(float64(latency.Milliseconds()))
	}
}
