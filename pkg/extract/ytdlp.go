// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/wovault/pkg/logger"
)

// CommandRunner executes one yt-dlp invocation and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// execRunner shells out to the yt-dlp binary. stderr is folded into the
// returned error so callers can classify the failure text.
type execRunner struct {
	binPath string
}

func (r execRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// downloadArgs builds the yt-dlp invocation for one download. The final
// file path, after any merge, is printed on stdout.
func (s *service) downloadArgs(url string, source Source, outputTemplate string) []string {
	format, mergeMP4 := formatFor(source)
	args := []string{"--format", format}
	if mergeMP4 {
		args = append(args, "--merge-output-format", "mp4")
	}
	if source == SourceYouTube {
		// The API metadata is enough, skip the watch page probe.
		args = append(args, "--extractor-args", "youtube:skip=webpage")
	}
	args = append(args,
		"--output", outputTemplate,
		"--socket-timeout", s.socketTimeoutArg(),
		"--retries", "3",
		"--fragment-retries", "3",
		"--skip-unavailable-fragments",
		"--no-check-certificate",
		"--user-agent", s.cfg.UserAgent,
		"--no-progress",
		"--print", "after_move:filepath",
		"--no-simulate",
		url,
	)
	return args
}

func (s *service) titleArgs(url string) []string {
	return []string{
		"--print", "title",
		"--skip-download",
		"--quiet",
		"--no-warnings",
		"--socket-timeout", s.socketTimeoutArg(),
		"--no-check-certificate",
		"--user-agent", s.cfg.UserAgent,
		url,
	}
}

func (s *service) socketTimeoutArg() string {
	return strconv.Itoa(int(s.cfg.SocketTimeout / time.Second))
}

// download runs the bounded retry loop. Only TLS-flavored failures retry,
// anything else aborts immediately.
func (s *service) download(ctx context.Context, url string, source Source, outputTemplate string) (string, error) {
	args := s.downloadArgs(url, source, outputTemplate)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := s.cfg.Runner.Run(ctx, args...)
		if err == nil {
			path := lastLine(out)
			if path == "" {
				return "", &Error{Code: ErrCodeExtraction, Message: "yt-dlp reported no output file"}
			}
			return path, nil
		}
		lastErr = err

		if attempt == s.cfg.MaxAttempts || !retryable(err) {
			break
		}

		delay := time.Duration(attempt) * s.cfg.RetryDelay
		logger.Ctx(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("transient extraction error, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", &Error{Code: ErrCodeExtraction, Message: fmt.Sprintf("extract %s", url), Err: lastErr}
}

// probeTitle asks for the media title before downloading. Naming is not
// worth failing an extraction over: persistent errors fall back to a
// generic stem.
func (s *service) probeTitle(ctx context.Context, url string) string {
	args := s.titleArgs(url)

	for attempt := 1; attempt <= s.cfg.TitleAttempts; attempt++ {
		out, err := s.cfg.Runner.Run(ctx, args...)
		if err == nil {
			if title := lastLine(out); title != "" {
				return title
			}
			return fallbackTitle
		}
		if attempt == s.cfg.TitleAttempts || !retryable(err) {
			logger.Ctx(ctx).Warn().Err(err).Msg("title probe failed, using fallback")
			return fallbackTitle
		}
		select {
		case <-time.After(2 * s.cfg.RetryDelay):
		case <-ctx.Done():
			return fallbackTitle
		}
	}
	return fallbackTitle
}

// retryable reports whether the failure looks like a transient TLS fault.
func retryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SSL") || strings.Contains(msg, "UNEXPECTED_EOF")
}

func lastLine(out string) string {
	trimmed := strings.TrimSpace(out)
	if i := strings.LastIndexByte(trimmed, '\n'); i >= 0 {
		return strings.TrimSpace(trimmed[i+1:])
	}
	return trimmed
}
