package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Cache metrics
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by outcome (hit or miss)",
		},
		[]string{"cache", "outcome"},
	)

	// Market data gateway metrics
	marketFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_data_fetches_total",
			Help: "Market data gateway fetches by operation and branch (live or fallback)",
		},
		[]string{"operation", "branch"},
	)

	// Live price stream metrics
	streamSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_subscribed_symbols",
			Help: "Number of symbols currently subscribed on the upstream price stream",
		},
	)

	streamUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_price_updates_total",
			Help: "Price updates received from the upstream stream",
		},
	)

	// Staking metrics
	stakingOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staking_operations_total",
			Help: "Staking lifecycle operations by type and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Portfolio metrics
	portfolioSnapshots = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_snapshots_total",
			Help: "Valuation snapshots recorded, by trigger (scheduled or manual)",
		},
		[]string{"trigger"},
	)

	// Kafka metrics
	kafkaMessagesProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total number of Kafka messages produced",
		},
		[]string{"topic"},
	)
)

func init() {
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(httpRequestsTotal)
	registry.MustRegister(httpRequestDuration)
	registry.MustRegister(cacheLookups)
	registry.MustRegister(marketFetches)
	registry.MustRegister(streamSubscriptions)
	registry.MustRegister(streamUpdates)
	registry.MustRegister(stakingOperations)
	registry.MustRegister(portfolioSnapshots)
	registry.MustRegister(kafkaMessagesProduced)
}

// Registry returns the prometheus registry.
func Registry() *prometheus.Registry {
	return registry
}

// Handler returns a Fiber handler for the /metrics endpoint.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}

// Middleware records request count and duration per route.
func Middleware(skipPaths ...string) fiber.Handler {
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}

	return func(c *fiber.Ctx) error {
		if skip[c.Path()] {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		method := c.Method()
		path := c.Route().Path

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

func RecordCacheLookup(cache string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookups.WithLabelValues(cache, outcome).Inc()
}

func RecordMarketFetch(operation string, fallback bool) {
	branch := "live"
	if fallback {
		branch = "fallback"
	}
	marketFetches.WithLabelValues(operation, branch).Inc()
}

func SetSubscribedSymbols(count int) {
	streamSubscriptions.Set(float64(count))
}

func RecordPriceUpdate() {
	streamUpdates.Inc()
}

func RecordStakingOperation(operation, outcome string) {
	stakingOperations.WithLabelValues(operation, outcome).Inc()
}

func RecordPortfolioSnapshot(trigger string) {
	portfolioSnapshots.WithLabelValues(trigger).Inc()
}

func RecordKafkaMessageProduced(topic string) {
	kafkaMessagesProduced.WithLabelValues(topic).Inc()
}
