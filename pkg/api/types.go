// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package api

type downloadRequest struct {
	VideoURL string `json:"video_url"`
	Type     string `json:"type"`
}

type downloadResponse struct {
	Status    string `json:"status"`
	FilePath  string `json:"file_path"`
	Extension string `json:"extension"`
	FileSize  int64  `json:"file_size"`
	Message   string `json:"message"`
}

type uploadRequest struct {
	FilePath    string `json:"file_path"`
	DirectoryID string `json:"directory_id"`
}

type uploadResponse struct {
	Status     string `json:"status"`
	Fid        string `json:"fid,omitempty"`
	Confirmed  bool   `json:"confirmed"`
	UniqueID   string `json:"unique_id"`
	BatchNo    string `json:"batch_no"`
	FileName   string `json:"file_name"`
	FileSize   int64  `json:"file_size"`
	TotalParts int    `json:"total_parts"`
	PartsSent  int    `json:"parts_sent"`
	Message    string `json:"message"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
