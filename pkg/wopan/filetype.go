// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package wopan

import (
	"path/filepath"
	"strings"
)

// Type codes of the fileType envelope field.
const (
	FileTypeImage    = "1"
	FileTypeVideo    = "2"
	FileTypeAudio    = "3"
	FileTypeDocument = "4"
	FileTypeOther    = "5"
)

// FileTypeOf classifies a file name into the closed set of envelope type
// codes by its extension. Unknown and missing extensions fall back to
// FileTypeOther.
func FileTypeOf(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	switch ext {
	case "jpg", "jpeg", "png", "bmp", "gif":
		return FileTypeImage
	case "mp4", "mkv", "avi", "mov", "flv":
		return FileTypeVideo
	case "mp3", "wav", "flac":
		return FileTypeAudio
	case "doc", "docx", "pdf", "txt":
		return FileTypeDocument
	default:
		return FileTypeOther
	}
}
