// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"time"
)

// WebhookConfig holds webhook notification settings.
type WebhookConfig struct {
	// URL receives one POST per matching event. Empty disables delivery.
	URL string `mapstructure:"url"`

	// Events filters delivery by type pattern (default: all events).
	// Patterns support a trailing wildcard, e.g. "session.*".
	Events []string `mapstructure:"events"`

	// Timeout for HTTP requests (default: 30s).
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxRetries for failed deliveries (default: 3).
	MaxRetries int `mapstructure:"max_retries"`

	// RetryDelay between retry attempts (default: 1s).
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// UserAgent for HTTP requests (default: "WoVault/1.0").
	UserAgent string `mapstructure:"user_agent"`

	// QueueSize bounds the pending event buffer (default: 256).
	// Events emitted while the buffer is full are dropped and counted.
	QueueSize int `mapstructure:"queue_size"`
}

// DefaultWebhookConfig returns a WebhookConfig with default values.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
		UserAgent:  "WoVault/1.0",
		QueueSize:  256,
	}
}

// Validate applies defaults for missing or invalid values.
func (c *WebhookConfig) Validate() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "WoVault/1.0"
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
}

// Enabled reports whether a delivery target is configured.
func (c *WebhookConfig) Enabled() bool {
	return c.URL != ""
}
