// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package wopan

import (
	"errors"
	"net/http"
)

const (
	// DefaultUploadURL is the chunked upload endpoint of the Wopan web client.
	DefaultUploadURL = "https://tjupload.pan.wo.cn/openapi/client/upload2C"

	// DefaultChunkSize is the fixed part size the Wopan SDK uploads with.
	DefaultChunkSize = 8 * 1024 * 1024

	// RootDirectoryID addresses the root folder of the user's space.
	RootDirectoryID = "0"

	// successCode is the canonical success value of the response code field.
	successCode = "0000"

	// Fixed form values the endpoint expects from the web client.
	channelName = "wocloud"
	psToken     = "undefined"
)

// UploadRequest identifies the file to transfer and its target folder.
type UploadRequest struct {
	FilePath    string
	DirectoryID string // empty means RootDirectoryID
}

// UploadResult is the terminal outcome of one upload session.
//
// Confirmed reports whether the remote service returned a file identifier.
// The protocol may finish the nominal part sequence without ever issuing
// one; such sessions carry Confirmed=false with an empty Fid and should be
// treated as suspect by callers.
type UploadResult struct {
	Fid        string
	Confirmed  bool
	UniqueID   string
	BatchNo    string
	FileName   string
	FileSize   int64
	TotalParts int
	PartsSent  int
	Code       string
	Message    string
}

// FileInfoEnvelope is the plaintext metadata record encrypted into the
// fileInfo form field. FileSize is always the whole-file size, also on
// intermediate parts; the part size travels separately as a form field.
type FileInfoEnvelope struct {
	SpaceType   string `json:"spaceType"`
	DirectoryID string `json:"directoryId"`
	BatchNo     string `json:"batchNo"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	FileType    string `json:"fileType"`
}

// PartUpload is the payload of one part transmission attempt.
type PartUpload struct {
	UniqueID    string
	AccessToken string
	FileName    string
	FileSize    int64 // whole-file size
	TotalParts  int
	DirectoryID string
	FileInfo    string // base64 ciphertext of the envelope
	PartSize    int64
	PartIndex   int // 1-based
	Body        []byte
}

// UploadResponse is the decoded JSON body of a part response.
type UploadResponse struct {
	Code string        `json:"code"`
	Msg  string        `json:"msg"`
	Data *ResponseData `json:"data,omitempty"`
}

// ResponseData carries the optional finalization marker.
type ResponseData struct {
	Fid string `json:"fid"`
}

// Fid returns the remote file identifier, or "" while the upload has not
// been finalized server-side.
func (r *UploadResponse) Fid() string {
	if r == nil || r.Data == nil {
		return ""
	}
	return r.Data.Fid
}

// Accepted reports whether the response carries the canonical success code.
func (r *UploadResponse) Accepted() bool {
	return r != nil && r.Code == successCode
}

// Error codes for upload operations
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeValidation
	ErrCodeNotFound
	ErrCodeCredential
	ErrCodeTransport
	ErrCodeProtocol
	ErrCodeExhausted
)

// Error represents an upload error with an error code
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps an upload error to the status code served at the API
// boundary: caller mistakes map to 4xx, transport and protocol failures
// to 5xx.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case ErrCodeValidation, ErrCodeCredential:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the upload error code carried by err, or ErrCodeNone.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeNone
}
