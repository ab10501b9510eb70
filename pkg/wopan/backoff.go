// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package wopan

import "time"

// FailureKind classifies why a part attempt failed, which selects the
// retry pacing.
type FailureKind int

const (
	// FailureTransport covers connection errors, timeouts, unexpected HTTP
	// statuses and undecodable response bodies.
	FailureTransport FailureKind = iota

	// FailureProtocol covers decoded responses whose code is not the
	// canonical success value.
	FailureProtocol
)

func (k FailureKind) String() string {
	if k == FailureProtocol {
		return "protocol"
	}
	return "transport"
}

// BackoffStrategy decides how long to wait before retrying a part.
type BackoffStrategy interface {
	// Next returns the delay after the attempt-th failed try (1-based).
	Next(attempt int, kind FailureKind) time.Duration
}

// protocolBackoff is the endpoint's expected retry pacing: exponential
// cool-off after transport faults, a flat two seconds after remote error
// codes, which usually signal a transient server-side condition rather
// than congestion.
type protocolBackoff struct{}

// NewProtocolBackoff returns the default backoff strategy.
func NewProtocolBackoff() BackoffStrategy {
	return protocolBackoff{}
}

func (protocolBackoff) Next(attempt int, kind FailureKind) time.Duration {
	if kind == FailureProtocol {
		return 2 * time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<(attempt-1)) * time.Second
}
