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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the channel refresh workflow: picking up new uploads from followed
// channels and feeding them to the processing pipeline.
package workflow

import (
	goctx "context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"google.golang.org/api/iterator"
	"google.golang.org/api/youtube/v3"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/commands"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// ChannelRefreshWorkflow handles one channel refresh trigger by fanning out
// the channel's unprocessed recent uploads to the processing topic. It also
// owns the scheduled sweep: a timer that walks the followed channel table and
// publishes a refresh trigger for every channel that is due.
type ChannelRefreshWorkflow struct {
	cor.BaseCommand
	config          *cloud.Config
	bigqueryClient  *bigquery.Client
	refreshTopic    *pubsub.Topic
	dueChannelQuery string
	existsQuery     string
	chain           cor.Chain
}

// NewChannelRefreshWorkflow is the constructor for the refresh workflow.
//
// Inputs:
//   - config: The application's configuration object.
//   - serviceClients: The initialized Google Cloud service clients.
//   - youtubeService: An initialized YouTube Data API service.
//   - processTopic: The topic processing triggers are published to.
//   - refreshTopic: The topic the scheduled sweep publishes refresh triggers to.
//
// Outputs:
//   - *ChannelRefreshWorkflow: A pointer to the configured workflow.
func NewChannelRefreshWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	youtubeService *youtube.Service,
	processTopic *pubsub.Topic,
	refreshTopic *pubsub.Topic,
) *ChannelRefreshWorkflow {
	fqChannelTable := strings.Replace(serviceClients.BigQueryClient.Dataset(config.BigQueryDataSource.DatasetName).Table(config.BigQueryDataSource.ChannelTable).FullyQualifiedName(), ":", ".", -1)
	fqVideoTable := strings.Replace(serviceClients.BigQueryClient.Dataset(config.BigQueryDataSource.DatasetName).Table(config.BigQueryDataSource.VideoTable).FullyQualifiedName(), ":", ".", -1)

	interval := config.Scheduler.RefreshIntervalMinutes
	if interval <= 0 {
		interval = 60
	}

	out := &ChannelRefreshWorkflow{
		BaseCommand:    *cor.NewBaseCommand("channel-refresh-workflow"),
		config:         config,
		bigqueryClient: serviceClients.BigQueryClient,
		refreshTopic:   refreshTopic,
		dueChannelQuery: fmt.Sprintf(
			"SELECT * FROM `%s` WHERE last_checked < TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL %d MINUTE)",
			fqChannelTable, interval),
		existsQuery: fmt.Sprintf(
			"SELECT COUNT(*) AS total FROM `%s` WHERE user_id = @user_id AND video_id = @video_id",
			fqVideoTable),
	}

	chain := cor.NewBaseChain(out.GetName())
	chain.AddCommand(commands.NewChannelRefreshFanOut(
		"channel-refresh-fan-out",
		youtubeService,
		processTopic,
		config.Scheduler.MaxVideosPerChannel,
		out.isProcessed))
	out.chain = chain
	return out
}

// Execute handles one refresh trigger by running the fan-out chain.
//
// Inputs:
//   - context: The chain context carrying the raw refresh trigger JSON.
func (m *ChannelRefreshWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// IsExecutable delegates to the underlying chain.
func (m *ChannelRefreshWorkflow) IsExecutable(context cor.Context) bool {
	return m.chain.IsExecutable(context)
}

// StartTimer kicks off the scheduled sweep. Each tick finds followed channels
// whose last check is older than the refresh interval and publishes a refresh
// trigger for each, leaving the per-channel work to the refresh listener.
func (m *ChannelRefreshWorkflow) StartTimer() {
	interval := m.config.Scheduler.RefreshIntervalMinutes
	if interval <= 0 {
		interval = 60
	}
	tracer := otel.Tracer("channel-refresh-batch")
	ticker := time.NewTicker(time.Duration(interval) * time.Minute)
	closeTicker := make(chan struct{})

	go func(m *ChannelRefreshWorkflow) {
		for {
			select {
			case <-ticker.C:
				traceCtx, span := tracer.Start(goctx.Background(), "channel-refresh-sweep")
				if err := m.sweep(traceCtx); err != nil {
					log.Printf("channel refresh sweep failed: %v\n", err)
					span.SetStatus(codes.Error, "failed to execute refresh sweep")
				} else {
					span.SetStatus(codes.Ok, "executed refresh sweep")
				}
				span.End()
			case <-closeTicker:
				ticker.Stop()
				return
			}
		}
	}(m)
}

// sweep publishes one refresh trigger per due channel.
func (m *ChannelRefreshWorkflow) sweep(ctx goctx.Context) error {
	q := m.bigqueryClient.Query(m.dueChannelQuery)
	it, err := q.Read(ctx)
	if err != nil {
		return err
	}

	for {
		var channel model.FollowedChannel
		err := it.Next(&channel)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return err
		}

		payload, _ := json.Marshal(&commands.ChannelRefreshTrigger{
			ChannelId: channel.ChannelId,
			UserId:    channel.UserId,
			MaxVideos: m.config.Scheduler.MaxVideosPerChannel,
		})
		result := m.refreshTopic.Publish(ctx, &pubsub.Message{Data: payload})
		if _, err := result.Get(ctx); err != nil {
			return fmt.Errorf("failed to publish refresh trigger for channel %s: %w", channel.ChannelId, err)
		}
	}
	return nil
}

// isProcessed reports whether a video already has a row for the given user.
// Used by the fan-out command to skip uploads the pipeline has seen.
func (m *ChannelRefreshWorkflow) isProcessed(ctx cor.Context, userId string, videoId string) bool {
	q := m.bigqueryClient.Query(m.existsQuery)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userId},
		{Name: "video_id", Value: videoId},
	}
	it, err := q.Read(ctx.GetContext())
	if err != nil {
		// Treat a failed lookup as unprocessed so a transient BigQuery
		// error can't permanently drop an upload.
		return false
	}
	var row struct {
		Total int64 `bigquery:"total"`
	}
	if err := it.Next(&row); err != nil {
		return false
	}
	return row.Total > 0
}
