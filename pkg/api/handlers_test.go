// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/wovault/pkg/api"
	"github.com/LeeDigitalWorks/wovault/pkg/events"
	"github.com/LeeDigitalWorks/wovault/pkg/extract"
	"github.com/LeeDigitalWorks/wovault/pkg/wopan"
)

// ============================================================================
// Test Doubles
// ============================================================================

type fakeUploader struct {
	mu   sync.Mutex
	reqs []wopan.UploadRequest
	fn   func(req *wopan.UploadRequest) (*wopan.UploadResult, error)
}

func (f *fakeUploader) Upload(_ context.Context, req *wopan.UploadRequest) (*wopan.UploadResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, *req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeUploader) lastRequest() wopan.UploadRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

type fakeExtractor struct {
	fn func(url string, source extract.Source) (*extract.Result, error)
}

func (f *fakeExtractor) Extract(_ context.Context, url string, source extract.Source) (*extract.Result, error) {
	return f.fn(url, source)
}

func confirmedResult() *wopan.UploadResult {
	return &wopan.UploadResult{
		Fid:        "fid-1",
		Confirmed:  true,
		UniqueID:   "1700000000000_AbCdEf",
		BatchNo:    "20240102030405",
		FileName:   "clip.mp4",
		FileSize:   11,
		TotalParts: 1,
		PartsSent:  1,
		Code:       "0000",
		Message:    "success",
	}
}

func newTestServer(t *testing.T, up wopan.Uploader, ex extract.Service) *api.Server {
	t.Helper()
	return api.NewServerWith(api.Config{
		UploadDir: filepath.Join(t.TempDir(), "uploads"),
	}, up, ex)
}

func doJSON(t *testing.T, srv *api.Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), "body: %s", rec.Body.String())
	return m
}

// ============================================================================
// Health Tests
// ============================================================================

func TestServer_Healthy(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil, nil)
	rec := doJSON(t, srv, http.MethodGet, "/healthy", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "Service is healthy", body["message"])
	_, err := time.Parse(time.RFC3339, body["time"].(string))
	assert.NoError(t, err)
}

// ============================================================================
// Download Tests
// ============================================================================

func TestServer_Download(t *testing.T) {
	t.Parallel()

	var gotURL string
	var gotSource extract.Source
	ex := &fakeExtractor{fn: func(url string, source extract.Source) (*extract.Result, error) {
		gotURL = url
		gotSource = source
		return &extract.Result{
			FilePath:  "temp/youtube/My_Video_12345678.mp4",
			Extension: "mp4",
			FileSize:  2048,
			Title:     "My Video",
		}, nil
	}}
	srv := newTestServer(t, nil, ex)

	rec := doJSON(t, srv, http.MethodPost, "/download", map[string]string{
		"video_url": "https://youtube.com/watch?v=abc",
		"type":      "youtube",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "temp/youtube/My_Video_12345678.mp4", body["file_path"])
	assert.Equal(t, "mp4", body["extension"])
	assert.EqualValues(t, 2048, body["file_size"])
	assert.NotEmpty(t, body["message"])

	assert.Equal(t, "https://youtube.com/watch?v=abc", gotURL)
	assert.Equal(t, extract.SourceYouTube, gotSource)
}

func TestServer_Download_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    interface{}
		raw     string
		errType string
	}{
		{
			name:    "missing url",
			body:    map[string]string{"type": "youtube"},
			errType: "invalid_request",
		},
		{
			name:    "unsupported type",
			body:    map[string]string{"video_url": "https://x.test/v", "type": "vimeo"},
			errType: "invalid_request",
		},
		{
			name:    "malformed json",
			raw:     "{not json",
			errType: "invalid_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ex := &fakeExtractor{fn: func(string, extract.Source) (*extract.Result, error) {
				t.Error("extractor must not run on validation failure")
				return nil, nil
			}}
			srv := newTestServer(t, nil, ex)

			var rec *httptest.ResponseRecorder
			if tt.raw != "" {
				req := httptest.NewRequest(http.MethodPost, "/download", bytes.NewBufferString(tt.raw))
				rec = httptest.NewRecorder()
				srv.ServeHTTP(rec, req)
			} else {
				rec = doJSON(t, srv, http.MethodPost, "/download", tt.body)
			}

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.errType, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestServer_Download_ExtractionFailure(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{fn: func(string, extract.Source) (*extract.Result, error) {
		return nil, &extract.Error{Code: extract.ErrCodeExtraction, Message: "extract failed", Err: errors.New("ERROR: video unavailable")}
	}}
	srv := newTestServer(t, nil, ex)

	rec := doJSON(t, srv, http.MethodPost, "/download", map[string]string{
		"video_url": "https://x.test/v",
		"type":      "tiktok",
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "extraction_failed", body["error"])
	assert.Contains(t, body["message"], "video unavailable")
}

func TestServer_Download_StagingVolumeFull(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{fn: func(string, extract.Source) (*extract.Result, error) {
		return nil, &extract.Error{Code: extract.ErrCodeCapacity, Message: "staging volume is low on space"}
	}}
	srv := newTestServer(t, nil, ex)

	rec := doJSON(t, srv, http.MethodPost, "/download", map[string]string{
		"video_url": "https://x.test/v",
		"type":      "youtube",
	})

	require.Equal(t, http.StatusInsufficientStorage, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "insufficient_storage", body["error"])
}

func TestServer_Download_RateLimited(t *testing.T) {
	t.Parallel()

	calls := 0
	ex := &fakeExtractor{fn: func(string, extract.Source) (*extract.Result, error) {
		calls++
		return &extract.Result{FilePath: "temp/youtube/v.mp4", Extension: "mp4"}, nil
	}}
	srv := api.NewServerWith(api.Config{
		UploadDir:    filepath.Join(t.TempDir(), "uploads"),
		DownloadRate: 1,
	}, nil, ex)

	body := map[string]string{"video_url": "https://x.test/v", "type": "youtube"}

	// The burst admits exactly one request; the immediate second one is
	// refused without reaching the extractor.
	rec := doJSON(t, srv, http.MethodPost, "/download", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/download", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decodeBody(t, rec)["error"])
	assert.Equal(t, 1, calls)
}

// ============================================================================
// Upload Tests
// ============================================================================

func TestServer_WopanUpload(t *testing.T) {
	t.Parallel()

	up := &fakeUploader{fn: func(*wopan.UploadRequest) (*wopan.UploadResult, error) {
		return confirmedResult(), nil
	}}
	srv := newTestServer(t, up, nil)

	rec := doJSON(t, srv, http.MethodPost, "/wopan/upload", map[string]string{
		"file_path":    "/data/clip.mp4",
		"directory_id": "42",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "fid-1", body["fid"])
	assert.Equal(t, true, body["confirmed"])
	assert.Equal(t, "1700000000000_AbCdEf", body["unique_id"])
	assert.Equal(t, "20240102030405", body["batch_no"])
	assert.EqualValues(t, 1, body["total_parts"])

	req := up.lastRequest()
	assert.Equal(t, "/data/clip.mp4", req.FilePath)
	assert.Equal(t, "42", req.DirectoryID)
}

func TestServer_WopanUpload_Unconfirmed(t *testing.T) {
	t.Parallel()

	up := &fakeUploader{fn: func(*wopan.UploadRequest) (*wopan.UploadResult, error) {
		res := confirmedResult()
		res.Fid = ""
		res.Confirmed = false
		return res, nil
	}}
	srv := newTestServer(t, up, nil)

	rec := doJSON(t, srv, http.MethodPost, "/wopan/upload", map[string]string{"file_path": "/data/clip.mp4"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "unconfirmed", body["status"])
	assert.Equal(t, false, body["confirmed"])
	assert.NotContains(t, body, "fid")
	assert.Contains(t, body["message"], "no file id")
}

func TestServer_WopanUpload_DefaultDirectory(t *testing.T) {
	t.Parallel()

	up := &fakeUploader{fn: func(*wopan.UploadRequest) (*wopan.UploadResult, error) {
		return confirmedResult(), nil
	}}
	srv := api.NewServerWith(api.Config{
		DirectoryID: "77",
		UploadDir:   filepath.Join(t.TempDir(), "uploads"),
	}, up, nil)

	rec := doJSON(t, srv, http.MethodPost, "/wopan/upload", map[string]string{"file_path": "/data/clip.mp4"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "77", up.lastRequest().DirectoryID, "blank directory_id falls back to the configured default")
}

func TestServer_WopanUpload_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		uploadErr  error
		wantStatus int
		wantType   string
	}{
		{
			name:       "file not found",
			uploadErr:  &wopan.Error{Code: wopan.ErrCodeNotFound, Message: "file not found: /data/gone.mp4"},
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "invalid credential",
			uploadErr:  &wopan.Error{Code: wopan.ErrCodeCredential, Message: "access token must be at least 16 bytes"},
			wantStatus: http.StatusBadRequest,
			wantType:   "missing_credential",
		},
		{
			name:       "retries exhausted",
			uploadErr:  &wopan.Error{Code: wopan.ErrCodeExhausted, Message: "part 1/3 failed after 3 attempts"},
			wantStatus: http.StatusInternalServerError,
			wantType:   "upload_failed",
		},
		{
			name:       "unclassified error",
			uploadErr:  errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			up := &fakeUploader{fn: func(*wopan.UploadRequest) (*wopan.UploadResult, error) {
				return nil, tt.uploadErr
			}}
			srv := newTestServer(t, up, nil)

			rec := doJSON(t, srv, http.MethodPost, "/wopan/upload", map[string]string{"file_path": "/data/clip.mp4"})
			require.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.wantType, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestServer_WopanUpload_Validation(t *testing.T) {
	t.Parallel()

	up := &fakeUploader{fn: func(*wopan.UploadRequest) (*wopan.UploadResult, error) {
		t.Error("uploader must not run on validation failure")
		return nil, nil
	}}
	srv := newTestServer(t, up, nil)

	rec := doJSON(t, srv, http.MethodPost, "/wopan/upload", map[string]string{"directory_id": "1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeBody(t, rec)["error"])
}

func TestServer_WopanUpload_NoCredential(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil, nil)

	rec := doJSON(t, srv, http.MethodPost, "/wopan/upload", map[string]string{"file_path": "/data/clip.mp4"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "missing_credential", body["error"])
}

// ============================================================================
// File Upload Tests
// ============================================================================

func multipartBody(t *testing.T, fileName, content, directoryID string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if directoryID != "" {
		require.NoError(t, w.WriteField("directory_id", directoryID))
	}
	fw, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestServer_FileUpload(t *testing.T) {
	t.Parallel()

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	var stagedPath, stagedContent string
	up := &fakeUploader{fn: func(req *wopan.UploadRequest) (*wopan.UploadResult, error) {
		stagedPath = req.FilePath
		data, err := os.ReadFile(req.FilePath)
		require.NoError(t, err, "staged file must exist while the upload runs")
		stagedContent = string(data)
		return confirmedResult(), nil
	}}
	srv := api.NewServerWith(api.Config{UploadDir: uploadDir}, up, nil)

	body, contentType := multipartBody(t, "my clip.mp4", "media-bytes", "42")
	req := httptest.NewRequest(http.MethodPost, "/wopan/file-upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "media-bytes", stagedContent)
	assert.Equal(t, "42", up.lastRequest().DirectoryID)

	assert.Equal(t, uploadDir, filepath.Dir(stagedPath))
	assert.Regexp(t, `^my_clip_[0-9a-f]{8}\.mp4$`, filepath.Base(stagedPath))

	_, err := os.Stat(stagedPath)
	assert.True(t, os.IsNotExist(err), "staged file must be removed after the upload")
}

func TestServer_FileUpload_MissingFile(t *testing.T) {
	t.Parallel()

	up := &fakeUploader{fn: func(*wopan.UploadRequest) (*wopan.UploadResult, error) {
		t.Error("uploader must not run without a file")
		return nil, nil
	}}
	srv := newTestServer(t, up, nil)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("directory_id", "1"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/wopan/file-upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeBody(t, rec)["error"])
}

func TestServer_FileUpload_NoCredential(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil, nil)

	body, contentType := multipartBody(t, "clip.mp4", "x", "")
	req := httptest.NewRequest(http.MethodPost, "/wopan/file-upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_credential", decodeBody(t, rec)["error"])
}

// ============================================================================
// Routing and Construction Tests
// ============================================================================

func TestServer_Routing(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil, nil)

	rec := doJSON(t, srv, http.MethodGet, "/download", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		accessToken string
		wantErr     bool
	}{
		{name: "no token disables uploads", accessToken: ""},
		{name: "undersized token fails construction", accessToken: "short", wantErr: true},
		{name: "valid token", accessToken: "0123456789abcdefEXTRA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, err := api.NewServer(api.Config{
				AccessToken: tt.accessToken,
				TempDir:     t.TempDir(),
				UploadDir:   filepath.Join(t.TempDir(), "uploads"),
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, wopan.ErrCodeCredential, wopan.CodeOf(err))
				assert.Nil(t, srv)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, srv)

			if tt.accessToken == "" {
				rec := doJSON(t, srv, http.MethodPost, "/wopan/upload", map[string]string{"file_path": "/x"})
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Equal(t, "missing_credential", decodeBody(t, rec)["error"])
			}
		})
	}
}

func TestNewServer_EventWebhook(t *testing.T) {
	t.Parallel()

	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	srv, err := api.NewServer(api.Config{
		AccessToken:  "0123456789abcdefEXTRA",
		TempDir:      t.TempDir(),
		UploadDir:    filepath.Join(t.TempDir(), "uploads"),
		EventWebhook: events.WebhookConfig{URL: hook.URL},
	})
	require.NoError(t, err)

	// Close must stop the delivery worker cleanly.
	assert.NoError(t, srv.Close())
}
