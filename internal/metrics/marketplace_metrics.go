package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketplaceMetrics содержит метрики оформления заказов и отзывов.
// Все методы безопасны для nil-получателя.
type MarketplaceMetrics struct {
	ordersPlaced    prometheus.Counter
	orderFailures   *prometheus.CounterVec
	placeDuration   prometheus.Histogram
	orderItems      prometheus.Histogram
	reviewsAdded    prometheus.Counter
	reviewsRejected *prometheus.CounterVec
	ratingQueries   prometheus.Counter
	categoryCache   *prometheus.CounterVec
}

// NewMarketplaceMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewMarketplaceMetrics() *MarketplaceMetrics {
	return NewMarketplaceMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMarketplaceMetricsWithRegisterer регистрирует метрики в переданном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewMarketplaceMetricsWithRegisterer(registerer prometheus.Registerer) *MarketplaceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &MarketplaceMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "urbanfood_orders_placed_total",
			Help: "Total number of orders placed successfully",
		}),
		orderFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "urbanfood_order_failures_total",
			Help: "Total number of rejected order placements by reason",
		}, []string{"reason"}),
		placeDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "urbanfood_order_place_duration_seconds",
			Help:    "Duration of order placement in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		orderItems: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "urbanfood_order_items",
			Help:    "Number of distinct products per placed order",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		reviewsAdded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "urbanfood_reviews_added_total",
			Help: "Total number of reviews stored",
		}),
		reviewsRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "urbanfood_reviews_rejected_total",
			Help: "Total number of rejected reviews by reason",
		}, []string{"reason"}),
		ratingQueries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "urbanfood_rating_queries_total",
			Help: "Total number of average rating computations",
		}),
		categoryCache: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "urbanfood_category_cache_requests_total",
			Help: "Category listing cache lookups by result",
		}, []string{"result"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderPlaced фиксирует успешный заказ.
func (m *MarketplaceMetrics) RecordOrderPlaced(items int, duration time.Duration) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.orderItems.Observe(float64(items))
	m.placeDuration.Observe(duration.Seconds())
}

// RecordOrderFailed фиксирует отказ в оформлении заказа.
func (m *MarketplaceMetrics) RecordOrderFailed(reason string, duration time.Duration) {
	if m == nil {
		return
	}
	m.orderFailures.WithLabelValues(reason).Inc()
	m.placeDuration.Observe(duration.Seconds())
}

// RecordReviewAdded увеличивает счётчик сохранённых отзывов.
func (m *MarketplaceMetrics) RecordReviewAdded() {
	if m == nil {
		return
	}
	m.reviewsAdded.Inc()
}

// RecordReviewRejected увеличивает счётчик отклонённых отзывов.
func (m *MarketplaceMetrics) RecordReviewRejected(reason string) {
	if m == nil {
		return
	}
	m.reviewsRejected.WithLabelValues(reason).Inc()
}

// RecordRatingQuery увеличивает счётчик запросов средней оценки.
func (m *MarketplaceMetrics) RecordRatingQuery() {
	if m == nil {
		return
	}
	m.ratingQueries.Inc()
}

// RecordCategoryCache фиксирует результат обращения к кэшу категорий: hit, miss или error.
func (m *MarketplaceMetrics) RecordCategoryCache(result string) {
	if m == nil {
		return
	}
	m.categoryCache.WithLabelValues(result).Inc()
}
