// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package wopan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Browser-facing values the endpoint validates; requests without them are
// rejected as non-web-client traffic.
const (
	originHeader  = "https://pan.wo.cn"
	refererHeader = "https://pan.wo.cn/"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// TransportGateway performs one part transmission attempt.
//
// Implementations return an error for transport-level failures and a decoded
// response otherwise, including responses whose code is not the success
// value. The caller decides whether and how to retry.
type TransportGateway interface {
	UploadPart(ctx context.Context, part *PartUpload) (*UploadResponse, error)
}

// HTTPGateway posts parts as multipart/form-data to the upload endpoint.
type HTTPGateway struct {
	url    string
	client *http.Client
}

// NewHTTPGateway creates a gateway for url with the given per-attempt
// timeout.
func NewHTTPGateway(url string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) UploadPart(ctx context.Context, part *PartUpload) (*UploadResponse, error) {
	body, contentType, err := encodePart(part)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Origin", originHeader)
	req.Header.Set("Referer", refererHeader)
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post part %d: %w", part.PartIndex, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("part %d: unexpected status %s", part.PartIndex, resp.Status)
	}

	var decoded UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("part %d: decode response: %w", part.PartIndex, err)
	}
	return &decoded, nil
}

// encodePart builds the multipart/form-data body. Field order follows the
// web client; the chunk bytes go last under the "file" field.
func encodePart(part *PartUpload) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := []struct {
		name, value string
	}{
		{"uniqueId", part.UniqueID},
		{"accessToken", part.AccessToken},
		{"fileName", part.FileName},
		{"psToken", psToken},
		{"fileSize", strconv.FormatInt(part.FileSize, 10)},
		{"totalPart", strconv.Itoa(part.TotalParts)},
		{"channel", channelName},
		{"directoryId", part.DirectoryID},
		{"fileInfo", part.FileInfo},
		{"partSize", strconv.FormatInt(part.PartSize, 10)},
		{"partIndex", strconv.Itoa(part.PartIndex)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	fw, err := w.CreateFormFile("file", part.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("create file field: %w", err)
	}
	if _, err := fw.Write(part.Body); err != nil {
		return nil, "", fmt.Errorf("write chunk: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize form: %w", err)
	}
	return body, w.FormDataContentType(), nil
}
