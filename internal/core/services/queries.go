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
// sources. This file, `queries.go`, centralizes the BigQuery SQL query
// strings used by the services. Queries that take only table names use
// `fmt.Sprintf` placeholders; queries that take user-supplied values use
// named query parameters so user input never lands in the SQL text.
package services

const (
	// QryVideoKnn performs the k-nearest neighbor vector search that backs
	// semantic video search.
	//
	// How it works:
	// - `VECTOR_SEARCH` is the BigQuery native function that finds the
	//   stored vectors closest to a query vector.
	// - The first placeholder is the fully qualified embedding table name.
	// - `'embedding'` names the vector column in that table.
	// - The second placeholder is the query vector itself, injected as a
	//   comma-separated list of floats generated from the user's search text.
	// - `top_k => %d` is the 'k': how many nearest matches to return.
	// - EUCLIDEAN distance, ascending, so the closest videos come first.
	//
	// The query returns the video row key and its distance from the query.
	QryVideoKnn = "SELECT base.id AS video_id, distance FROM VECTOR_SEARCH(TABLE `%s`, 'embedding', (SELECT [ %s ] as embed), top_k => %d, distance_type => 'EUCLIDEAN') ORDER BY distance asc"

	// QryFindVideoById looks up one processed video row for one user. Both
	// filters matter: row keys are UUIDs, but the user filter keeps one
	// account from reading another's videos by guessing IDs.
	QryFindVideoById = "SELECT * FROM `%s` WHERE id = @id AND user_id = @user_id"

	// QryFindVideoByVideoId checks whether a YouTube video has already been
	// processed for a user. Used for refresh deduplication.
	QryFindVideoByVideoId = "SELECT COUNT(*) AS total FROM `%s` WHERE user_id = @user_id AND video_id = @video_id"

	// QryListVideos pages through a user's processed videos, newest first.
	QryListVideos = "SELECT * FROM `%s` WHERE user_id = @user_id ORDER BY processed_at DESC LIMIT @page_limit OFFSET @page_offset"

	// QryListVideosByChannel pages through a user's processed videos for one
	// channel, newest first.
	QryListVideosByChannel = "SELECT * FROM `%s` WHERE user_id = @user_id AND channel_name = @channel_name ORDER BY processed_at DESC LIMIT @page_limit OFFSET @page_offset"

	// QryCountVideos counts a user's processed videos for pagination totals.
	QryCountVideos = "SELECT COUNT(*) AS total FROM `%s` WHERE user_id = @user_id"

	// QryCountVideosThisWeek counts videos processed in the trailing seven
	// days for the stats endpoint.
	QryCountVideosThisWeek = "SELECT COUNT(*) AS total FROM `%s` WHERE user_id = @user_id AND processed_at > TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL 7 DAY)"

	// QryFindVideosByIds hydrates full video rows for a set of row keys.
	// Used to turn VECTOR_SEARCH matches back into renderable videos.
	QryFindVideosByIds = "SELECT * FROM `%s` WHERE user_id = @user_id AND id IN UNNEST(@ids)"

	// QryListChannels returns every channel a user follows, most recently
	// followed first.
	QryListChannels = "SELECT * FROM `%s` WHERE user_id = @user_id ORDER BY followed_at DESC"

	// QryFindChannel checks whether a user already follows a channel.
	QryFindChannel = "SELECT COUNT(*) AS total FROM `%s` WHERE user_id = @user_id AND channel_id = @channel_id"

	// QryDeleteChannel removes one followed channel row.
	QryDeleteChannel = "DELETE FROM `%s` WHERE user_id = @user_id AND channel_id = @channel_id"

	// QryTouchChannel stamps a followed channel after a refresh sweep
	// covered it.
	QryTouchChannel = "UPDATE `%s` SET last_checked = CURRENT_TIMESTAMP() WHERE user_id = @user_id AND channel_id = @channel_id"
)
