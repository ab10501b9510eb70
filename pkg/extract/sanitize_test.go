// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package extract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LeeDigitalWorks/wovault/pkg/extract"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "plain title", title: "hello", want: "hello"},
		{name: "spaces become underscores", title: "My Cool Video", want: "My_Cool_Video"},
		{name: "forbidden characters removed", title: `a/b\c:d*e?f"g<h>i|j`, want: "abcdefghij"},
		{name: "space runs collapse", title: "a   b", want: "a_b"},
		{name: "underscore runs collapse", title: "a__b", want: "a_b"},
		{name: "trailing underscores stripped", title: "name  ", want: "name"},
		{name: "capped at fifty runes", title: strings.Repeat("x", 60), want: strings.Repeat("x", 50)},
		{name: "cap happens before strip", title: strings.Repeat("y", 49) + " tail", want: strings.Repeat("y", 49)},
		{name: "multibyte runes counted once", title: strings.Repeat("界", 60), want: strings.Repeat("界", 50)},
		{name: "empty becomes video", title: "", want: "video"},
		{name: "only forbidden becomes video", title: `???///|||`, want: "video"},
		{name: "only spaces becomes video", title: "   ", want: "video"},
		{name: "unicode preserved", title: "你好 世界", want: "你好_世界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extract.SanitizeFilename(tt.title))
		})
	}
}
