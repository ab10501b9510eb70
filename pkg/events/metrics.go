// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"github.com/LeeDigitalWorks/wovault/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SessionsStartedTotal tracks upload sessions started
	SessionsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wovault",
		Subsystem: "upload",
		Name:      "sessions_started_total",
		Help:      "Total number of upload sessions started",
	})

	// SessionsFinishedTotal tracks sessions that finished without error
	SessionsFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wovault",
		Subsystem: "upload",
		Name:      "sessions_finished_total",
		Help:      "Total number of upload sessions finished without error",
	}, []string{"outcome"}) // outcome: "confirmed", "unconfirmed"

	// SessionsFailedTotal tracks sessions aborted by an error
	SessionsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wovault",
		Subsystem: "upload",
		Name:      "sessions_failed_total",
		Help:      "Total number of upload sessions aborted by an error",
	})

	// PartsUploadedTotal tracks accepted parts
	PartsUploadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wovault",
		Subsystem: "upload",
		Name:      "parts_uploaded_total",
		Help:      "Total number of parts accepted by the remote service",
	})

	// PartRetriesTotal tracks scheduled part retries by failure kind
	PartRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wovault",
		Subsystem: "upload",
		Name:      "part_retries_total",
		Help:      "Total number of part retries scheduled",
	}, []string{"reason"}) // reason: "transport", "protocol"

	// BytesUploadedTotal tracks accepted payload bytes
	BytesUploadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wovault",
		Subsystem: "upload",
		Name:      "bytes_total",
		Help:      "Total number of payload bytes accepted by the remote service",
	})

	// EventsDeliveredTotal tracks notifications delivered per publisher
	EventsDeliveredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wovault",
		Subsystem: "events",
		Name:      "delivered_total",
		Help:      "Total number of event notifications delivered",
	}, []string{"publisher"})

	// EventsDeliveryErrorsTotal tracks notifications that exhausted delivery retries
	EventsDeliveryErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wovault",
		Subsystem: "events",
		Name:      "delivery_errors_total",
		Help:      "Total number of event notifications that could not be delivered",
	}, []string{"publisher"})

	// EventsDroppedTotal tracks events dropped because the queue was full
	EventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wovault",
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "Total number of events dropped because the delivery queue was full",
	})
)

func init() {
	debug.Registry().MustRegister(
		SessionsStartedTotal,
		SessionsFinishedTotal,
		SessionsFailedTotal,
		PartsUploadedTotal,
		PartRetriesTotal,
		BytesUploadedTotal,
		EventsDeliveredTotal,
		EventsDeliveryErrorsTotal,
		EventsDroppedTotal,
	)
}
