// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

// Package events defines the upload lifecycle observer.
//
// The upload client reports progress through an injected Emitter instead of
// logging directly, keeping the retry machinery decoupled from any concrete
// logging backend. The production emitter logs through zerolog and updates
// the Prometheus counters; tests inject their own.
package events

import (
	"context"
	"time"

	"github.com/LeeDigitalWorks/wovault/pkg/logger"
)

// Type identifies an upload lifecycle event.
type Type string

const (
	TypeSessionStarted     Type = "session.started"
	TypePartUploaded       Type = "part.uploaded"
	TypePartRetried        Type = "part.retried"
	TypeSessionCompleted   Type = "session.completed"
	TypeSessionUnconfirmed Type = "session.unconfirmed"
	TypeSessionFailed      Type = "session.failed"
)

// Event describes one step of an upload session. UniqueID and BatchNo
// identify the session; part fields are zero on session-level events.
type Event struct {
	Type       Type
	FileName   string
	FileSize   int64
	UniqueID   string
	BatchNo    string
	PartIndex  int
	TotalParts int
	PartSize   int64
	Attempt    int
	Delay      time.Duration
	Reason     string // retry classification: "transport" or "protocol"
	Fid        string
	Err        error
}

// Emitter receives upload lifecycle events.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// LogEmitter logs events through the global logger and keeps the
// Prometheus counters current.
type LogEmitter struct{}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{}
}

func (e *LogEmitter) Emit(ctx context.Context, ev Event) {
	switch ev.Type {
	case TypeSessionStarted:
		SessionsStartedTotal.Inc()
		logger.Ctx(ctx).Info().
			Str("file", ev.FileName).
			Int64("size", ev.FileSize).
			Str("unique_id", ev.UniqueID).
			Str("batch_no", ev.BatchNo).
			Int("total_parts", ev.TotalParts).
			Msg("upload session started")

	case TypePartUploaded:
		PartsUploadedTotal.Inc()
		BytesUploadedTotal.Add(float64(ev.PartSize))
		logger.Ctx(ctx).Info().
			Str("unique_id", ev.UniqueID).
			Int("part", ev.PartIndex).
			Int("total_parts", ev.TotalParts).
			Int64("part_size", ev.PartSize).
			Msg("part uploaded")

	case TypePartRetried:
		PartRetriesTotal.WithLabelValues(ev.Reason).Inc()
		logger.Ctx(ctx).Warn().
			Err(ev.Err).
			Str("unique_id", ev.UniqueID).
			Int("part", ev.PartIndex).
			Int("attempt", ev.Attempt).
			Dur("delay", ev.Delay).
			Str("reason", ev.Reason).
			Msg("part upload failed, retrying")

	case TypeSessionCompleted:
		SessionsFinishedTotal.WithLabelValues("confirmed").Inc()
		logger.Ctx(ctx).Info().
			Str("file", ev.FileName).
			Str("unique_id", ev.UniqueID).
			Str("fid", ev.Fid).
			Msg("upload completed")

	case TypeSessionUnconfirmed:
		SessionsFinishedTotal.WithLabelValues("unconfirmed").Inc()
		logger.Ctx(ctx).Warn().
			Str("file", ev.FileName).
			Str("unique_id", ev.UniqueID).
			Int("parts_sent", ev.PartIndex).
			Msg("upload finished but remote returned no file id")

	case TypeSessionFailed:
		SessionsFailedTotal.Inc()
		logger.Ctx(ctx).Error().
			Err(ev.Err).
			Str("file", ev.FileName).
			Str("unique_id", ev.UniqueID).
			Int("part", ev.PartIndex).
			Msg("upload session failed")
	}
}

// NoopEmitter returns an emitter that drops all events.
// Use this when upload progress reporting is disabled.
func NoopEmitter() Emitter {
	return noopEmitter{}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, Event) {}

// NewMultiEmitter fans every event out to each emitter in order.
func NewMultiEmitter(emitters ...Emitter) Emitter {
	return multiEmitter(emitters)
}

type multiEmitter []Emitter

func (m multiEmitter) Emit(ctx context.Context, ev Event) {
	for _, e := range m {
		e.Emit(ctx, ev)
	}
}
