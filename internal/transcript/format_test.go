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

package transcript

import (
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00", FormatTimestamp(0))
	assert.Equal(t, "00:45", FormatTimestamp(45))
	assert.Equal(t, "02:05", FormatTimestamp(125))
	assert.Equal(t, "59:59", FormatTimestamp(3599))
	assert.Equal(t, "1:00:00", FormatTimestamp(3600))
	assert.Equal(t, "2:15:04", FormatTimestamp(8104))
	// Negative offsets clamp to zero rather than rendering garbage.
	assert.Equal(t, "00:00", FormatTimestamp(-10))
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"00:45", 45},
		{"02:05", 125},
		{"1:00:00", 3600},
		{"2:15:04", 8104},
		{" 01:30 ", 90},
	}
	for _, c := range cases {
		got, err := ParseTimestamp(c.in)
		assert.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	for _, bad := range []string{"", "90", "1:2:3:4", "aa:bb", "-1:00"} {
		_, err := ParseTimestamp(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, seconds := range []int{0, 59, 60, 3599, 3600, 7265} {
		got, err := ParseTimestamp(FormatTimestamp(seconds))
		assert.NoError(t, err)
		assert.Equal(t, seconds, got)
	}
}

func TestFormatTimestamped(t *testing.T) {
	chunks := []*model.TranscriptChunk{
		{Text: "Welcome back to the channel.", Offset: 0, Duration: 3200},
		{Text: "Today we are looking at vector search.", Offset: 3200, Duration: 4100},
		{Text: "First, a quick\nrecap of embeddings.", Offset: 7300, Duration: 3900},
		{Text: "  ", Offset: 11000, Duration: 500},
		{Text: "More details follow", Offset: 11200, Duration: 4800},
	}
	out := FormatTimestamped(chunks)

	// Newlines inside a chunk are flattened and blank chunks dropped.
	assert.True(t, strings.Contains(out, "[00:07] First, a quick recap of embeddings."))
	assert.False(t, strings.Contains(out, "[00:11] \n"))

	// Lines group into paragraphs at sentence boundaries; a trailing
	// unterminated line still appears.
	paragraphs := strings.Split(out, "\n\n")
	assert.Equal(t, 3, len(paragraphs))
	assert.True(t, strings.HasPrefix(paragraphs[0], "[00:00] Welcome back"))
	assert.Equal(t, "[00:11] More details follow", paragraphs[2])
}

func TestSplitLine(t *testing.T) {
	ts, text, ok := SplitLine("[02:05] Similar meanings land close together.")
	assert.True(t, ok)
	assert.Equal(t, "02:05", ts)
	assert.Equal(t, "Similar meanings land close together.", text)

	_, _, ok = SplitLine("")
	assert.False(t, ok)
	_, _, ok = SplitLine("no timestamp here")
	assert.False(t, ok)
	_, _, ok = SplitLine("[broken")
	assert.False(t, ok)
}

func TestSliceByRange(t *testing.T) {
	chunks := []*model.TranscriptChunk{
		{Text: "Intro.", Offset: 0},
		{Text: "Middle part one.", Offset: 60_000},
		{Text: "Middle part two.", Offset: 90_000},
		{Text: "Outro.", Offset: 300_000},
	}
	formatted := FormatTimestamped(chunks)

	slice := SliceByRange(formatted, 60, 120)
	assert.True(t, strings.Contains(slice, "Middle part one."))
	assert.True(t, strings.Contains(slice, "Middle part two."))
	assert.False(t, strings.Contains(slice, "Intro."))
	assert.False(t, strings.Contains(slice, "Outro."))

	// An empty window selects nothing.
	assert.Equal(t, "", SliceByRange(formatted, 400, 500))
}

func TestRawText(t *testing.T) {
	chunks := []*model.TranscriptChunk{
		{Text: "One."},
		{Text: "  "},
		{Text: "Two."},
	}
	assert.Equal(t, "One. Two.", RawText(chunks))
}
