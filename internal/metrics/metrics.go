// Package metrics registers the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MeetingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "meetings_created_total",
		Help:      "Meetings created.",
	})
	AttendeesAdded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "attendees_added_total",
		Help:      "Attendee rows inserted by bulk adds.",
	})
	AttendanceMarked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "attendance_marked_total",
		Help:      "Attendance confirmations.",
	})
	FeedbackSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "feedback_submitted_total",
		Help:      "Feedback entries stored.",
	})
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "notifications_total",
		Help:      "Notification pipeline events by outcome (queued, sent, failed).",
	}, []string{"outcome"})
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
