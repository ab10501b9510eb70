// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LeeDigitalWorks/wovault/pkg/extract"
	"github.com/LeeDigitalWorks/wovault/pkg/logger"
	"github.com/LeeDigitalWorks/wovault/pkg/utils"
	"github.com/LeeDigitalWorks/wovault/pkg/wopan"
)

func (s *Server) handleHealthy(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Message: "Service is healthy",
		Time:    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.writeError(w, http.StatusTooManyRequests, "rate_limited", "too many download requests")
		return
	}

	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.VideoURL == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "video_url is required")
		return
	}
	source, err := extract.ParseSource(req.Type)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.extractor.Extract(r.Context(), req.VideoURL, source)
	if err != nil {
		s.writeExtractError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, downloadResponse{
		Status:    "success",
		FilePath:  res.FilePath,
		Extension: res.Extension,
		FileSize:  res.FileSize,
		Message:   "video downloaded",
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.FilePath == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "file_path is required")
		return
	}

	s.runUpload(w, r, req.FilePath, req.DirectoryID)
}

func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		s.writeError(w, http.StatusBadRequest, "missing_credential", "no Wopan access token is configured")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", `multipart field "file" is required`)
		return
	}
	defer file.Close()

	staged, err := s.stageUpload(file, header.Filename)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	defer func() {
		if err := os.Remove(staged); err != nil {
			logger.Ctx(r.Context()).Warn().Err(err).Str("path", staged).Msg("failed to remove staged upload")
		}
	}()

	s.runUpload(w, r, staged, r.FormValue("directory_id"))
}

// runUpload is the shared tail of both upload endpoints.
func (s *Server) runUpload(w http.ResponseWriter, r *http.Request, filePath, directoryID string) {
	if s.uploader == nil {
		s.writeError(w, http.StatusBadRequest, "missing_credential", "no Wopan access token is configured")
		return
	}
	if directoryID == "" {
		directoryID = s.cfg.DirectoryID
	}

	res, err := s.uploader.Upload(r.Context(), &wopan.UploadRequest{
		FilePath:    filePath,
		DirectoryID: directoryID,
	})
	if err != nil {
		s.writeUploadError(w, err)
		return
	}

	resp := uploadResponse{
		Status:     "success",
		Fid:        res.Fid,
		Confirmed:  res.Confirmed,
		UniqueID:   res.UniqueID,
		BatchNo:    res.BatchNo,
		FileName:   res.FileName,
		FileSize:   res.FileSize,
		TotalParts: res.TotalParts,
		PartsSent:  res.PartsSent,
		Message:    "upload confirmed",
	}
	if !res.Confirmed {
		resp.Status = "unconfirmed"
		resp.Message = "upload finished but the remote returned no file id"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// stageUpload copies an incoming file into the staging directory under a
// collision-free name that keeps the original extension.
func (s *Server) stageUpload(src io.Reader, originalName string) (string, error) {
	if err := utils.EnsureDir(s.cfg.UploadDir); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	base := filepath.Base(originalName)
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "upload"
	}
	ext := filepath.Ext(base)
	stem := extract.SanitizeFilename(strings.TrimSuffix(base, ext))
	dst := filepath.Join(s.cfg.UploadDir, fmt.Sprintf("%s_%s%s", stem, uuid.NewString()[:8], ext))

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return dst, nil
}

func (s *Server) writeUploadError(w http.ResponseWriter, err error) {
	var uerr *wopan.Error
	if errors.As(err, &uerr) {
		s.writeError(w, uerr.HTTPStatus(), uploadErrorType(uerr.Code), uerr.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

func uploadErrorType(code wopan.ErrorCode) string {
	switch code {
	case wopan.ErrCodeValidation:
		return "invalid_request"
	case wopan.ErrCodeNotFound:
		return "not_found"
	case wopan.ErrCodeCredential:
		return "missing_credential"
	default:
		return "upload_failed"
	}
}

func (s *Server) writeExtractError(w http.ResponseWriter, err error) {
	switch extract.CodeOf(err) {
	case extract.ErrCodeValidation:
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case extract.ErrCodeCapacity:
		s.writeError(w, http.StatusInsufficientStorage, "insufficient_storage", err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, "extraction_failed", err.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, errType, message string) {
	s.writeJSON(w, status, errorResponse{
		Error:   errType,
		Message: message,
	})
}
