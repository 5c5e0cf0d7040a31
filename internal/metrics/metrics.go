package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "library_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AttendanceEvents counts accepted attendance transitions (entry, exit, present, ...).
	AttendanceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_attendance_events_total",
		Help: "Attendance transitions applied to student records.",
	}, []string{"kind"})

	AuditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_audit_entries_total",
		Help: "Modification history entries written, by field.",
	}, []string{"field"})

	SMSDispatch = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_sms_dispatch_total",
		Help: "Outbound SMS attempts by result.",
	}, []string{"result"})

	SaveConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_student_save_conflicts_total",
		Help: "Student saves rejected by the version check.",
	})
)
