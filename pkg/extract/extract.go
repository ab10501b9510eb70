// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

// Package extract retrieves media from streaming platforms through the
// yt-dlp binary and stages the files locally for upload.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/LeeDigitalWorks/wovault/pkg/logger"
	"github.com/LeeDigitalWorks/wovault/pkg/utils"
)

// Result describes one staged media file.
type Result struct {
	FilePath  string
	Extension string
	FileSize  int64
	Title     string
}

// Service retrieves media from a supported platform into local staging.
type Service interface {
	Extract(ctx context.Context, url string, source Source) (*Result, error)
}

const (
	defaultBinPath       = "yt-dlp"
	defaultTempDir       = "temp"
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultSocketTimeout = 60 * time.Second
	defaultMaxAttempts   = 3
	defaultTitleAttempts = 2
	defaultRetryDelay    = time.Second
)

// Config holds the settings of an extraction service.
type Config struct {
	// BinPath locates the yt-dlp executable. Defaults to "yt-dlp" on PATH.
	BinPath string

	// TempDir is the staging root; files land in TempDir/<source>/.
	// Defaults to "temp".
	TempDir string

	// UserAgent is sent with every platform request.
	UserAgent string

	// SocketTimeout caps single network operations inside yt-dlp.
	// Defaults to 60s.
	SocketTimeout time.Duration

	// MaxAttempts bounds download tries. Only TLS-looking failures are
	// retried. Defaults to 3.
	MaxAttempts int

	// TitleAttempts bounds title probes. Defaults to 2.
	TitleAttempts int

	// RetryDelay is the base pause between retries; download retries grow
	// linearly from it. Defaults to 1s.
	RetryDelay time.Duration

	// Timeout caps one whole extraction. Zero means unbounded; large
	// downloads legitimately run for a long time.
	Timeout time.Duration

	// MinFree refuses extraction when the staging volume drops below the
	// threshold. Nil disables the check.
	MinFree *utils.FreeSpace

	// Runner executes yt-dlp. Defaults to running BinPath.
	Runner CommandRunner
}

// NewService creates an extraction service from cfg, filling defaults.
func NewService(cfg Config) Service {
	if cfg.BinPath == "" {
		cfg.BinPath = defaultBinPath
	}
	if cfg.TempDir == "" {
		cfg.TempDir = defaultTempDir
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = defaultSocketTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.TitleAttempts <= 0 {
		cfg.TitleAttempts = defaultTitleAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Runner == nil {
		cfg.Runner = execRunner{binPath: cfg.BinPath}
	}
	return &service{cfg: cfg}
}

type service struct {
	cfg Config
}

func (s *service) Extract(ctx context.Context, url string, source Source) (*Result, error) {
	if strings.TrimSpace(url) == "" {
		return nil, &Error{Code: ErrCodeValidation, Message: "url is required"}
	}
	parsed, err := ParseSource(string(source))
	if err != nil {
		return nil, err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	stagingDir := filepath.Join(s.cfg.TempDir, string(parsed))
	if err := utils.EnsureDir(stagingDir); err != nil {
		return nil, &Error{Code: ErrCodeExtraction, Message: "create staging directory", Err: err}
	}
	if err := s.cfg.MinFree.Guard(stagingDir); err != nil {
		return nil, &Error{Code: ErrCodeCapacity, Message: "staging volume is low on space", Err: err}
	}

	title := s.probeTitle(ctx, url)
	stem := fmt.Sprintf("%s_%s", SanitizeFilename(title), uuid.NewString()[:8])
	outputTemplate := filepath.Join(stagingDir, stem+".%(ext)s")

	logger.Ctx(ctx).Info().
		Str("url", url).
		Str("source", string(parsed)).
		Str("stem", stem).
		Msg("starting extraction")

	path, err := s.download(ctx, url, parsed, outputTemplate)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("url", url).Msg("extraction failed")
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeExtraction, Message: fmt.Sprintf("staged file missing: %s", path), Err: err}
	}

	logger.Ctx(ctx).Info().
		Str("path", path).
		Str("size", humanize.Bytes(uint64(info.Size()))).
		Msg("extraction finished")

	return &Result{
		FilePath:  path,
		Extension: strings.TrimPrefix(filepath.Ext(path), "."),
		FileSize:  info.Size(),
		Title:     title,
	}, nil
}
