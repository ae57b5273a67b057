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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// final step of the processing workflow: archiving the raw transcript text
// to a Cloud Storage bucket. The archive is the durable source-of-truth copy
// used for reprocessing when prompts or models change, so it runs after the
// BigQuery write has already succeeded.
package commands

import (
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// TranscriptArchive is a command that writes the raw transcript of a
// processed video to a GCS bucket.
type TranscriptArchive struct {
	cor.BaseCommand
	storageClient *storage.Client
	bucket        string
	videoParam    string // Context key for the persisted ProcessedVideo.
}

// NewTranscriptArchive is the constructor for the TranscriptArchive command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - storageClient: An initialized *storage.Client.
//   - bucket: The archive bucket name.
//   - videoParam: The context key holding the persisted ProcessedVideo.
//
// Outputs:
//   - *TranscriptArchive: A pointer to the newly instantiated command.
func NewTranscriptArchive(name string, storageClient *storage.Client, bucket string, videoParam string) *TranscriptArchive {
	return &TranscriptArchive{BaseCommand: *cor.NewBaseCommand(name), storageClient: storageClient, bucket: bucket, videoParam: videoParam}
}

// IsExecutable ensures the persisted video exists in the context.
func (s *TranscriptArchive) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(s.videoParam) != nil
}

// Execute writes the raw transcript to the archive bucket under the video's
// UUID.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *TranscriptArchive) Execute(context cor.Context) {
	video := context.Get(s.videoParam).(*model.ProcessedVideo)

	name := fmt.Sprintf("transcripts/%s.txt", video.Id)
	_, err := cloud.ArchiveObject(context.GetContext(), s.storageClient, s.bucket, name, "text/plain; charset=utf-8", []byte(video.RawTranscript))
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("transcript archive failed for %s: %w", video.Id, err))
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, video)
}
