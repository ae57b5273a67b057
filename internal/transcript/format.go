// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transcript implements the client for the transcript provider. This
// file contains the formatting helpers that turn raw timestamped chunks into
// the display transcript the dashboard renders: one "[MM:SS] text" line per
// chunk, grouped into paragraphs at sentence boundaries.
package transcript

import (
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// FormatTimestamp renders a second offset as "MM:SS", rolling over to
// "H:MM:SS" past the hour mark.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatTimestamped renders timestamped chunks into the display transcript.
// Every chunk becomes a "[MM:SS] text" line; lines accumulate into a
// paragraph until a sentence-ending line closes a group of at least two.
// Blank chunks produce no line but mark a pause in the speech, so they
// close the open paragraph too.
func FormatTimestamped(chunks []*model.TranscriptChunk) string {
	grouped := make([]string, 0)
	current := make([]string, 0)
	closeGroup := func() {
		if len(current) > 0 {
			grouped = append(grouped, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for _, chunk := range chunks {
		text := strings.TrimSpace(strings.ReplaceAll(chunk.Text, "\n", " "))
		if text == "" {
			closeGroup()
			continue
		}
		ts := FormatTimestamp(int(chunk.Offset / 1000))
		line := fmt.Sprintf("[%s] %s", ts, text)
		current = append(current, line)
		if endsSentence(line) && len(current) >= 2 {
			closeGroup()
		}
	}
	closeGroup()
	return strings.Join(grouped, "\n\n")
}

// ParseTimestamp is the inverse of FormatTimestamp: it parses "MM:SS" or
// "H:MM:SS" into a second offset.
func ParseTimestamp(ts string) (int, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	total := 0
	for _, p := range parts {
		var v int
		if _, err := fmt.Sscanf(p, "%d", &v); err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", ts)
		}
		total = total*60 + v
	}
	return total, nil
}

// SliceByRange extracts the transcript lines whose timestamps fall inside
// [startSeconds, endSeconds] from a formatted display transcript. Used by the
// time range summary and comparison operations.
func SliceByRange(formatted string, startSeconds int, endSeconds int) string {
	out := make([]string, 0)
	for _, line := range strings.Split(formatted, "\n") {
		ts, _, ok := SplitLine(line)
		if !ok {
			continue
		}
		seconds, err := ParseTimestamp(ts)
		if err != nil {
			continue
		}
		if seconds >= startSeconds && seconds <= endSeconds {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// SplitLine splits one "[MM:SS] text" display line into its timestamp and
// text. The third return value is false for blank lines and paragraph breaks.
func SplitLine(line string) (timestamp string, text string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return "", "", false
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return "", "", false
	}
	return line[1:end], strings.TrimSpace(line[end+1:]), true
}

// RawText joins chunk texts into one unformatted transcript string.
func RawText(chunks []*model.TranscriptChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		text := strings.TrimSpace(chunk.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func endsSentence(line string) bool {
	return strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") || strings.HasSuffix(line, "?")
}
