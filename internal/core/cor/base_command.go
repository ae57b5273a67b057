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

// Package cor (Chain of Responsibility) is the workflow engine used by the
// video analysis pipelines. This file defines BaseCommand, which every
// concrete command embeds to inherit:
//   - a name used in logs, traces and metric names
//   - an OpenTelemetry tracer plus success/error counters
//   - the default input/output parameter keys that make the BaseChain's
//     piping mechanism work
package cor

import (
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// BaseCommand provides the shared behavior for all concrete commands.
type BaseCommand struct {
	Name            string              // Unique command name used for tracing and metrics.
	InputParamName  string              // Context key for the command's primary input.
	OutputParamName string              // Context key for the command's primary output.
	Tracer          trace.Tracer        // Tracer for creating per-execution spans.
	Meter           metric.Meter        // Meter for creating metric instruments.
	SuccessCounter  metric.Int64Counter // Incremented on each successful execution.
	ErrorCounter    metric.Int64Counter // Incremented on each failed execution.
}

// NewBaseCommand creates a command with the given name and wires up its
// OpenTelemetry instrumentation from the global providers.
func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter("github.com/jaycherian/gcp-go-whisper-dashboard")

	successCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.success", name))
	if err != nil {
		log.Printf("error creating success counter for command '%s': %v\n", name, err)
	}
	errorCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.error", name))
	if err != nil {
		log.Printf("error creating error counter for command '%s': %v\n", name, err)
	}

	return &BaseCommand{
		Name:           name,
		Tracer:         otel.Tracer(name),
		Meter:          meter,
		SuccessCounter: successCounter,
		ErrorCounter:   errorCounter,
	}
}

// GetName returns the name of the command.
func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable is the default precondition check: the context must be valid,
// carry a Go context, and contain a value under the command's input key.
func (c *BaseCommand) IsExecutable(context Context) bool {
	return context != nil && context.Get(c.GetInputParam()) != nil && context.GetContext() != nil
}

// GetInputParam returns the key for the command's primary input. It defaults
// to CtxIn so the BaseChain can pipe the previous command's output in.
func (c *BaseCommand) GetInputParam() string {
	if len(c.InputParamName) == 0 {
		return CtxIn
	}
	return c.InputParamName
}

// GetOutputParam returns the key for the command's primary output. It
// defaults to CtxOut so the BaseChain can hand the result to the next command.
func (c *BaseCommand) GetOutputParam() string {
	if len(c.OutputParamName) == 0 {
		return CtxOut
	}
	return c.OutputParamName
}

// GetTracer returns the OpenTelemetry Tracer for this command.
func (c *BaseCommand) GetTracer() trace.Tracer {
	return c.Tracer
}

// GetMeter returns the OpenTelemetry Meter for this command.
func (c *BaseCommand) GetMeter() metric.Meter {
	return c.Meter
}

// GetSuccessCounter returns the success metric counter for this command.
func (c *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return c.SuccessCounter
}

// GetErrorCounter returns the error metric counter for this command.
func (c *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return c.ErrorCounter
}
