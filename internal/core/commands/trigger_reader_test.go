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

package commands

import (
	"context"
	"testing"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoId(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/", ""},
		{"https://example.com/watch?v=tooshort", ""},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExtractVideoId(c.url), c.url)
	}
}

func TestTriggerReaderExecute(t *testing.T) {
	reader := NewTriggerReader("read-trigger")

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, `{"url": "https://youtu.be/dQw4w9WgXcQ", "user_id": "user-1"}`)

	reader.Execute(chainCtx)
	require.False(t, chainCtx.HasErrors())

	trigger, ok := chainCtx.Get(GetTriggerParamName()).(*model.ProcessingTrigger)
	require.True(t, ok)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", trigger.Url)
	assert.Equal(t, "user-1", trigger.UserId)
	// The language defaults when the trigger leaves it out.
	assert.Equal(t, "en", trigger.Language)
}

func TestTriggerReaderRejectsBadInput(t *testing.T) {
	reader := NewTriggerReader("read-trigger")

	// Malformed JSON.
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, "not json")
	reader.Execute(chainCtx)
	assert.True(t, chainCtx.HasErrors())

	// Valid JSON without a recognizable video URL.
	chainCtx = cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, `{"url": "https://example.com/not-a-video"}`)
	reader.Execute(chainCtx)
	assert.True(t, chainCtx.HasErrors())
}
