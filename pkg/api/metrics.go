// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeeDigitalWorks/wovault/pkg/debug"
)

var (
	// RequestsTotal counts HTTP requests served, by route and status code.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wovault",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by route and status code.",
	}, []string{"route", "code"})

	// RequestDuration observes HTTP request latency, by route.
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wovault",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency, by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

func init() {
	debug.Registry().MustRegister(
		RequestsTotal,
		RequestDuration,
	)
}
