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
// This file defines a generic Pub/Sub message listener that delegates message
// processing to a workflow Command. The video processing and channel refresh
// pipelines both run behind listeners built from this type.
//
// Logic Flow:
//  1. A PubSubListener is created with a client and a subscription ID.
//  2. A Command (usually a whole workflow chain) is attached to it.
//  3. `Listen` starts a background goroutine that receives messages.
//  4. Each message's payload becomes the CtxIn of a fresh chain context and
//     the command executes against it.
//  5. The message is Ack'd only when the chain finishes without errors,
//     giving at-least-once processing; failed messages are redelivered per
//     the subscription's retry policy.
//
// Structs:
//   - PubSubListener: Binds a subscription to a processing command.
//
// Functions:
//   - NewPubSubListener: Constructor.
//   - SetCommand: Attaches the processing command.
//   - Listen: Starts receiving messages in the background.
package cloud

import (
	"context"
	"log"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener encapsulates the components needed to listen to one
// Pub/Sub subscription and process its messages with a workflow command.
// Listeners have a life-cycle independent of individual API requests, so
// they live in the cloud package rather than the API layer.
type PubSubListener struct {
	client       *pubsub.Client       // The client for interacting with the Pub/Sub service.
	subscription *pubsub.Subscription // The subscription this listener pulls messages from.
	command      cor.Command          // The command executed for each received message.
}

// NewPubSubListener creates a listener bound to the given subscription ID.
// The command may be nil at construction time and attached later with
// SetCommand once the workflow chains exist.
//
// Inputs:
//   - pubsubClient: An authenticated *pubsub.Client.
//   - subscriptionID: The string ID of the subscription.
//   - command: The cor.Command to execute on each message, or nil.
//
// Outputs:
//   - *PubSubListener: A pointer to the configured listener.
//   - error: Reserved for future construction failures; currently always nil.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	sub := pubsubClient.Subscription(subscriptionID)

	cmd = &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		command:      command,
	}
	return cmd, nil
}

// SetCommand attaches a command to the listener. The first attached command
// wins; later calls are ignored so startup wiring cannot accidentally
// overwrite an active pipeline.
//
// Inputs:
//   - command: The cor.Command to execute when a message is received.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts the asynchronous message receiving loop in its own
// goroutine so the server can keep handling API requests.
//
// Inputs:
//   - ctx: Controls the listener's lifecycle; canceling it stops receiving.
func (m *PubSubListener) Listen(ctx context.Context) {
	log.Printf("listening: %s", m.subscription)

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(ctx, "receive-message")
			span.SetName("receive-message")
			span.SetAttributes(attribute.String("msg", string(msg.Data)))
			log.Println("received message")

			// Each message gets a fresh chain context with the payload as
			// the initial input.
			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			m.command.Execute(chainCtx)

			if !chainCtx.HasErrors() {
				span.SetStatus(codes.Ok, "success")
				msg.Ack()
			} else {
				span.SetStatus(codes.Error, "failed")
				for _, e := range chainCtx.GetErrors() {
					log.Printf("error executing chain: %v", e)
				}
				// No Ack and no Nack: the message redelivers after its
				// deadline per the subscription's retry policy.
			}

			span.End()
		})

		if err != nil {
			log.Printf("error receiving data: %v", err)
		}
	}()
}
