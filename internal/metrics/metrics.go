package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymsched_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymsched_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SlotMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymsched_slot_mutations_total",
			Help: "Availability mutations by operation and result",
		},
		[]string{"operation", "result"},
	)

	QuickAddWeekdaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymsched_quick_add_weekdays_total",
			Help: "Weekdays attempted by bulk slot operations",
		},
		[]string{"operation", "result"},
	)

	MaterializationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymsched_calendar_materializations_total",
			Help: "Calendar materializations by view and result",
		},
		[]string{"view", "result"},
	)

	MaterializedEvents = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymsched_calendar_events",
			Help:    "Appointments fetched per materialization",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"view"},
	)

	AppointmentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymsched_appointment_transitions_total",
			Help: "Appointment status transition attempts",
		},
		[]string{"from", "to", "result"},
	)

	CalendarSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymsched_calendar_event_subscribers",
			Help: "Open calendar event streams",
		},
	)

	JournalWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymsched_journal_writes_total",
			Help: "Calendar journal entries by outcome",
		},
		[]string{"result"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordSlotMutation(operation, result string) {
	SlotMutationsTotal.WithLabelValues(operation, result).Inc()
}

func RecordQuickAdd(operation string, succeeded, failed int) {
	QuickAddWeekdaysTotal.WithLabelValues(operation, "ok").Add(float64(succeeded))
	QuickAddWeekdaysTotal.WithLabelValues(operation, "error").Add(float64(failed))
}

func RecordMaterialization(view, result string, events int) {
	MaterializationsTotal.WithLabelValues(view, result).Inc()
	if result == "ok" {
		MaterializedEvents.WithLabelValues(view).Observe(float64(events))
	}
}

func RecordTransition(from, to, result string) {
	AppointmentTransitionsTotal.WithLabelValues(from, to, result).Inc()
}

// RecordJournal counts journal outcomes: ok, retry, failed or dropped.
func RecordJournal(result string) {
	JournalWritesTotal.WithLabelValues(result).Inc()
}

// Result maps an error to the "ok"/"error" label used by the counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
