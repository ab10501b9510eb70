// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

// Package wopan implements the chunked upload client for Wopan cloud
// storage (pan.wo.cn).
//
// A file travels as an ordered sequence of fixed-size parts sharing one
// session identity (uniqueId, batchNo). Every part carries the same
// encrypted metadata envelope; the remote service signals completion by
// returning a file identifier (fid) in a part response, which may happen
// before the nominal last part.
package wopan

import (
	"context"
	"time"

	"github.com/LeeDigitalWorks/wovault/pkg/events"
)

// Uploader transfers local files to Wopan cloud storage.
type Uploader interface {
	// Upload runs one chunked upload session for req.FilePath.
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
}

const (
	defaultMaxAttempts    = 3
	defaultRequestTimeout = 120 * time.Second
)

// Config holds the settings of an upload client.
type Config struct {
	// AccessToken authenticates against the upload endpoint and seeds the
	// envelope key. Required, at least 16 bytes.
	AccessToken string

	// UploadURL overrides the upload endpoint. Defaults to DefaultUploadURL.
	UploadURL string

	// ChunkSize is the part size in bytes. Defaults to DefaultChunkSize;
	// the endpoint expects the default, overrides exist for tests.
	ChunkSize int64

	// MaxAttempts bounds the tries per part. Defaults to 3.
	MaxAttempts int

	// RequestTimeout caps one part attempt. Defaults to 120s.
	RequestTimeout time.Duration

	// Transport performs part transmissions. Defaults to an HTTPGateway
	// for UploadURL.
	Transport TransportGateway

	// Backoff paces retries. Defaults to the protocol strategy.
	Backoff BackoffStrategy

	// Emitter observes session progress. Defaults to events.NoopEmitter().
	Emitter events.Emitter
}

// NewUploader validates cfg and creates an upload client. A missing or
// undersized access token fails here, before any network activity.
func NewUploader(cfg Config) (Uploader, error) {
	if cfg.AccessToken == "" {
		return nil, &Error{Code: ErrCodeCredential, Message: "access token is required"}
	}

	cipher, err := NewMetadataCipher(cfg.AccessToken)
	if err != nil {
		return nil, err
	}

	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Transport == nil {
		cfg.Transport = NewHTTPGateway(cfg.UploadURL, cfg.RequestTimeout)
	}
	if cfg.Backoff == nil {
		cfg.Backoff = NewProtocolBackoff()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = events.NoopEmitter()
	}

	return &uploader{cfg: cfg, cipher: cipher}, nil
}

type uploader struct {
	cfg    Config
	cipher *MetadataCipher
}
