// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

// Package api serves the WoVault HTTP surface: media extraction, Wopan
// uploads and health.
package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/LeeDigitalWorks/wovault/pkg/events"
	"github.com/LeeDigitalWorks/wovault/pkg/extract"
	"github.com/LeeDigitalWorks/wovault/pkg/logger"
	"github.com/LeeDigitalWorks/wovault/pkg/utils"
	"github.com/LeeDigitalWorks/wovault/pkg/wopan"
)

// Config holds the settings of the API server.
type Config struct {
	// AccessToken is the Wopan credential. Empty disables the upload
	// endpoints; they answer with a missing-credential error.
	AccessToken string

	// DirectoryID is the default Wopan target folder for requests that
	// leave it blank.
	DirectoryID string

	// UploadURL overrides the Wopan endpoint, mainly for tests.
	UploadURL string

	// Timeout caps one Wopan part attempt.
	Timeout time.Duration

	// YtdlpPath locates the yt-dlp executable.
	YtdlpPath string

	// TempDir is the staging root for extracted media.
	TempDir string

	// UploadDir stages files posted to the file-upload endpoint.
	// Defaults to temp/uploads.
	UploadDir string

	// ExtractTimeout caps one whole extraction. Zero means unbounded.
	ExtractTimeout time.Duration

	// MinFreeSpace refuses new extractions when the staging volume drops
	// below the threshold. Nil disables the check.
	MinFreeSpace *utils.FreeSpace

	// DownloadRate caps download requests per second. Zero disables
	// throttling.
	DownloadRate int

	// EventWebhook configures upload event notification delivery.
	EventWebhook events.WebhookConfig
}

// Server routes the HTTP surface to the extraction and upload services.
type Server struct {
	cfg       Config
	mux       *http.ServeMux
	handler   http.Handler
	uploader  wopan.Uploader // nil until a token is configured
	extractor extract.Service
	limiter   *rate.Limiter // nil when throttling is disabled
	closers   []io.Closer
}

// NewServer builds a server with real collaborators. An undersized access
// token is a configuration mistake and fails construction; an absent one
// only disables the upload endpoints.
func NewServer(cfg Config) (*Server, error) {
	var emitter events.Emitter = events.NewLogEmitter()
	var closers []io.Closer
	if cfg.EventWebhook.Enabled() {
		webhook := events.NewWebhookEmitter(cfg.EventWebhook)
		closers = append(closers, webhook)
		emitter = events.NewMultiEmitter(emitter, webhook)
	}

	var uploader wopan.Uploader
	if cfg.AccessToken != "" {
		up, err := wopan.NewUploader(wopan.Config{
			AccessToken:    cfg.AccessToken,
			UploadURL:      cfg.UploadURL,
			RequestTimeout: cfg.Timeout,
			Emitter:        emitter,
		})
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, err
		}
		uploader = up
	}

	extractor := extract.NewService(extract.Config{
		BinPath: cfg.YtdlpPath,
		TempDir: cfg.TempDir,
		Timeout: cfg.ExtractTimeout,
		MinFree: cfg.MinFreeSpace,
	})

	s := NewServerWith(cfg, uploader, extractor)
	s.closers = closers
	return s, nil
}

// NewServerWith wires explicit collaborators.
func NewServerWith(cfg Config, uploader wopan.Uploader, extractor extract.Service) *Server {
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join("temp", "uploads")
	}
	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		uploader:  uploader,
		extractor: extractor,
	}
	if cfg.DownloadRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.DownloadRate), cfg.DownloadRate)
	}
	s.registerRoutes()
	s.handler = s.withObservability(s.mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close releases background resources, the event delivery worker included.
// Call it after the HTTP server has finished shutting down.
func (s *Server) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /download", s.handleDownload)
	s.mux.HandleFunc("POST /wopan/upload", s.handleUpload)
	s.mux.HandleFunc("POST /wopan/file-upload", s.handleFileUpload)
	s.mux.HandleFunc("GET /healthy", s.handleHealthy)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withObservability tags every request with an id, scopes a logger into the
// context and records route metrics.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqLogger := logger.Ctx(r.Context()).With().
			Str("request_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		req := r.WithContext(logger.WithLogger(r.Context(), &reqLogger))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

		reqLogger.Info().
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}
