package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "careassist"

var (
	registerOnce sync.Once

	analyses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Symptom analyses completed, by urgency level",
	}, []string{"urgency"})
	analysisInputErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_input_errors_total",
		Help:      "Symptom analyses rejected because no symptom could be extracted",
	})
	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Time spent analyzing one symptom submission",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	predictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Classifier predictions, by outcome",
	}, []string{"outcome"})
	classifierAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "classifier_available",
		Help:      "1 when a disease classifier is loaded",
	})

	prescriptionsAnalyzed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prescriptions_analyzed_total",
		Help:      "Prescriptions analyzed, by extractor",
	}, []string{"extractor"})
	ordersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Medicine orders placed",
	})
	orderValue = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_value",
		Help:      "Order totals including delivery",
		Buckets:   prometheus.ExponentialBuckets(50, 2, 10),
	})

	recordAccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_access_total",
		Help:      "Audited prescription and order requests, by resource, action and status class",
	}, []string{"resource", "action", "status"})
)

// Register adds the collectors to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(analyses, analysisInputErrors, analysisDuration, predictions,
			classifierAvailable, prescriptionsAnalyzed, ordersCreated, orderValue, recordAccess)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// Symptom analysis
func IncAnalysis(urgency string) { analyses.WithLabelValues(urgency).Inc() }
func IncAnalysisInputError()     { analysisInputErrors.Inc() }
func ObserveAnalysisDuration(d time.Duration) {
	analysisDuration.Observe(d.Seconds())
}
func IncPrediction(outcome string) { predictions.WithLabelValues(outcome).Inc() }

func SetClassifierAvailable(ok bool) {
	if ok {
		classifierAvailable.Set(1)
		return
	}
	classifierAvailable.Set(0)
}

// Pharmacy
func IncPrescriptionAnalyzed(extractor string) {
	prescriptionsAnalyzed.WithLabelValues(extractor).Inc()
}
func ObserveOrder(total float64) {
	ordersCreated.Inc()
	orderValue.Observe(total)
}

// IncRecordAccess counts one audited request. status is collapsed to its
// class, "2xx" through "5xx".
func IncRecordAccess(resource, action string, status int) {
	recordAccess.WithLabelValues(resource, action, statusClass(status)).Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
