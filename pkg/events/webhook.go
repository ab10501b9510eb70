// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LeeDigitalWorks/wovault/pkg/logger"
)

// WebhookEmitter delivers upload events to an HTTP endpoint as JSON
// notifications. Delivery is asynchronous: Emit enqueues and returns
// immediately, and a single worker drains the queue so a slow endpoint
// never stalls an upload.
type WebhookEmitter struct {
	cfg    WebhookConfig
	client *http.Client
	queue  chan Event
	done   chan struct{}
}

// NewWebhookEmitter starts the delivery worker. Close must be called to
// flush and stop it; no Emit may follow Close.
func NewWebhookEmitter(cfg WebhookConfig) *WebhookEmitter {
	cfg.Validate()
	e := &WebhookEmitter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go e.deliverLoop()
	return e
}

func (e *WebhookEmitter) Emit(ctx context.Context, ev Event) {
	if !e.matches(ev.Type) {
		return
	}
	select {
	case e.queue <- ev:
	default:
		EventsDroppedTotal.Inc()
		logger.Ctx(ctx).Warn().
			Str("type", string(ev.Type)).
			Msg("webhook queue full, dropping event")
	}
}

// Close stops the worker after draining queued events.
func (e *WebhookEmitter) Close() error {
	close(e.queue)
	<-e.done
	return nil
}

func (e *WebhookEmitter) matches(t Type) bool {
	if len(e.cfg.Events) == 0 {
		return true
	}
	for _, pattern := range e.cfg.Events {
		if MatchesType(pattern, t) {
			return true
		}
	}
	return false
}

func (e *WebhookEmitter) deliverLoop() {
	defer close(e.done)
	for ev := range e.queue {
		e.deliver(ev)
	}
}

func (e *WebhookEmitter) deliver(ev Event) {
	body, err := json.Marshal(BuildNotification(ev))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to marshal webhook notification")
		return
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(e.cfg.RetryDelay)
		}
		if lastErr = e.post(body); lastErr == nil {
			EventsDeliveredTotal.WithLabelValues("webhook").Inc()
			return
		}
	}

	EventsDeliveryErrorsTotal.WithLabelValues("webhook").Inc()
	logger.Warn().
		Err(lastErr).
		Str("type", string(ev.Type)).
		Str("url", e.cfg.URL).
		Msg("failed to deliver webhook notification")
}

func (e *WebhookEmitter) post(body []byte) error {
	req, err := http.NewRequest(http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", e.cfg.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
