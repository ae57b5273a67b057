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

// Package cloud provides components for interacting with Google Cloud services.
// This file contains helpers for archiving artifacts to Google Cloud Storage:
// raw transcripts captured during video processing and synthesized speech
// clips produced by the text-to-speech gateway.
//
// Structs:
//   - GCSObject: A lightweight reference to an archived object.
//
// Functions:
//   - ArchiveObject: Writes a byte payload to a bucket, sniffing the content
//     type from the payload when the caller doesn't know it.
package cloud

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/h2non/filetype"
)

// GCSObject is a lightweight reference to an object in Google Cloud Storage.
type GCSObject struct {
	Bucket   string // The name of the GCS bucket.
	Name     string // The name of the object.
	MIMEType string // The MIME type of the object (e.g. "audio/mpeg").
}

// ArchiveObject writes a byte payload to the given bucket and object name.
// When contentType is empty the payload's magic bytes decide it, which
// matters for synthesized audio where the speech provider doesn't declare a
// format on its stream.
//
// Inputs:
//   - ctx: The context for the upload.
//   - client: An authenticated *storage.Client.
//   - bucket: The destination bucket name.
//   - name: The destination object name.
//   - contentType: The MIME type, or "" to sniff it from the payload.
//   - data: The payload bytes.
//
// Outputs:
//   - *GCSObject: A reference to the written object.
//   - error: An error if the write fails.
func ArchiveObject(ctx context.Context, client *storage.Client, bucket string, name string, contentType string, data []byte) (*GCSObject, error) {
	if contentType == "" {
		kind, err := filetype.Match(data)
		if err == nil && kind != filetype.Unknown {
			contentType = kind.MIME.Value
		} else {
			contentType = "application/octet-stream"
		}
	}

	w := client.Bucket(bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write gs://%s/%s: %w", bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize gs://%s/%s: %w", bucket, name, err)
	}

	return &GCSObject{Bucket: bucket, Name: name, MIMEType: contentType}, nil
}
