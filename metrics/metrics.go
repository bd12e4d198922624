package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace    = "dispatchsim"
	carIDLabel   = "car_id"
	tierLabel    = "tier"
)

var (
	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    namespace + "_tick_duration_seconds",
			Help:    "Duration of one engine tick",
			Buckets: prometheus.DefBuckets,
		},
	)

	callWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    namespace + "_call_wait_seconds",
			Help:    "Wait time from call creation to boarding, for served calls",
			Buckets: []float64{1, 5, 15, 30, 45, 60, 90, 120, 180, 300},
		},
	)

	callTravelSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    namespace + "_call_travel_seconds",
			Help:    "Travel time from boarding to discharge, for served calls",
			Buckets: []float64{5, 10, 20, 30, 60, 90, 120},
		},
	)

	starvationEscalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: namespace + "_starvation_escalations_total",
			Help: "Count of calls crossing into a more severe starvation tier",
		},
		[]string{tierLabel},
	)

	assignmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: namespace + "_assignments_total",
			Help: "Count of calls assigned to a car",
		},
	)

	carUtilisation = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: namespace + "_car_utilisation_ratio",
			Help: "Per-car utilisation ratio in [0,1]",
		},
		[]string{carIDLabel},
	)

	activeCalls = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: namespace + "_active_calls",
			Help: "Number of calls currently in flight",
		},
	)
)

func init() {
	prometheus.MustRegister(
		tickDuration,
		callWaitSeconds,
		callTravelSeconds,
		starvationEscalations,
		assignmentsTotal,
		carUtilisation,
		activeCalls,
	)
}

// ObserveTickDuration records how long one engine tick took to process.
func ObserveTickDuration(seconds float64) {
	tickDuration.Observe(seconds)
}

// ObserveCallServed records a served call's wait and travel time.
func ObserveCallServed(waitSeconds, travelSeconds float64) {
	callWaitSeconds.Observe(waitSeconds)
	callTravelSeconds.Observe(travelSeconds)
}

// IncStarvationEscalation records one call crossing into tier.
func IncStarvationEscalation(tier string) {
	starvationEscalations.With(prometheus.Labels{tierLabel: tier}).Inc()
}

// IncAssignment records one call being assigned to a car.
func IncAssignment() {
	assignmentsTotal.Inc()
}

// SetCarUtilisation records one car's current utilisation ratio.
func SetCarUtilisation(carID string, ratio float64) {
	carUtilisation.With(prometheus.Labels{carIDLabel: carID}).Set(ratio)
}

// SetActiveCalls records the current count of in-flight calls.
func SetActiveCalls(n float64) {
	activeCalls.Set(n)
}
