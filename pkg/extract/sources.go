// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"fmt"
	"strings"
)

// Source names a supported media platform.
type Source string

const (
	SourceYouTube Source = "youtube"
	SourceTikTok  Source = "tiktok"
	SourceTwitter Source = "twitter"
)

// ParseSource normalizes s into a supported Source.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceYouTube:
		return SourceYouTube, nil
	case SourceTikTok:
		return SourceTikTok, nil
	case SourceTwitter:
		return SourceTwitter, nil
	default:
		return "", &Error{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("unsupported source %q, expected one of: youtube, tiktok, twitter", s),
		}
	}
}

// formatFor returns the yt-dlp format selector for source. YouTube aims for
// 1080p mp4+m4a with merging; the other platforms serve single best-quality
// files.
func formatFor(source Source) (format string, mergeMP4 bool) {
	if source == SourceYouTube {
		return "bestvideo[height>=1080][ext=mp4]+bestaudio[ext=m4a]/best[height>=1080]/best", true
	}
	return "best", false
}
