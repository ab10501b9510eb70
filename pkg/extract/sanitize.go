// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"regexp"
	"strings"
)

const (
	maxStemLength = 50
	fallbackTitle = "video"
)

var (
	forbiddenChars = regexp.MustCompile(`[/\\:*?"<>|]`)
	underscoreRun  = regexp.MustCompile(`_+`)
)

// SanitizeFilename reduces a media title to a file name stem: filesystem
// metacharacters removed, spaces collapsed to single underscores, length
// capped. Titles that sanitize to nothing become "video".
func SanitizeFilename(title string) string {
	s := forbiddenChars.ReplaceAllString(title, "")
	s = strings.ReplaceAll(s, " ", "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	if runes := []rune(s); len(runes) > maxStemLength {
		s = string(runes[:maxStemLength])
	}
	s = strings.TrimRight(s, "_")
	if s == "" {
		return fallbackTitle
	}
	return s
}
