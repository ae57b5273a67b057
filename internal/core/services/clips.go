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

// Package services contains the business logic for interacting with data
// sources. This file, `clips.go`, defines the ClipService, which generates
// secure, time-limited URLs for the synthesized speech clips the
// text-to-speech gateway archives in Google Cloud Storage.
package services

import (
	"context"
	"fmt"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

// ClipService signs GCS URLs for archived audio clips. Signing goes through
// the IAM Credentials API rather than a local key file, so the only
// requirement on the runtime is the signBlob permission on the signer
// service account.
type ClipService struct {
	StorageClient *storage.Client                   // Client for interacting with Google Cloud Storage.
	IAMClient     *credentials.IamCredentialsClient // Client for IAM, used for signing URLs.
	SignerEmail   string                            // The service account email used to sign URLs.
	AudioBucket   string                            // Bucket holding the archived clips.
}

// SignedClipURL creates a time-limited GET URL for one archived clip.
//
// Inputs:
//   - ctx: The context for the request.
//   - objectName: The clip's object name within the audio bucket.
//   - expires: The duration for which the URL will be valid.
//
// Outputs:
//   - string: The generated signed URL.
//   - error: An error if signing fails.
func (s *ClipService) SignedClipURL(ctx context.Context, objectName string, expires time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
		// SignBytes delegates the actual signing to the IAM Credentials
		// API, which avoids shipping service account keys with the app.
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := s.StorageClient.Bucket(s.AudioBucket).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", s.AudioBucket, objectName, err)
	}
	return u, nil
}
