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
// video analysis pipelines. A workflow is a Chain of small, single purpose
// Command objects that communicate through a shared Context. This file holds
// the interfaces; keeping the contracts small lets tests substitute in-memory
// fakes for any step of a pipeline.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the reserved keys used by a BaseChain to pipe data
// between commands.
const (
	// CtxIn is the default key a command reads its primary input from. The
	// chain fills it with the previous command's output before each step.
	CtxIn = "__IN__"
	// CtxOut is the default key a command writes its primary output to. The
	// chain moves it into CtxIn before the next command runs.
	CtxOut = "__OUT__"
)

// Context is the shared state object passed down a chain of commands. It is a
// property bag for a single workflow execution: commands read their inputs
// from it, write their results into it, and record any failures on it.
type Context interface {
	// SetContext sets the standard Go context.Context, used for cancellation
	// and for carrying the active OpenTelemetry span.
	SetContext(context context.Context)

	// GetContext returns the standard Go context.Context.
	GetContext() context.Context

	// Add stores a key-value pair. It returns the Context so calls can be
	// chained fluently.
	Add(key string, value interface{}) Context

	// AddError records a failure, conventionally keyed by the name of the
	// command that produced it.
	AddError(key string, err error)

	// GetErrors returns every error collected so far.
	GetErrors() map[string]error

	// Get returns the value stored under key, or nil.
	Get(key string) interface{}

	// Remove deletes the value stored under key.
	Remove(key string)

	// HasErrors reports whether any command has recorded an error.
	HasErrors() bool

	// AddTempFile registers a scratch file created during the workflow so
	// Close can delete it.
	AddTempFile(file string)

	// GetTempFiles returns the registered scratch file paths.
	GetTempFiles() []string

	// Close deletes all registered scratch files. Defer it at the start of a
	// workflow execution.
	Close()
}

// Executable is anything with a single unit of business logic.
type Executable interface {
	// Execute runs the business logic, reading inputs from and writing
	// outputs to the given Context.
	Execute(context Context)
}

// Command is an atomic, thread-safe unit of work, the building block of every
// workflow in the system.
type Command interface {
	Executable

	// GetName returns the command's unique name for logging and telemetry.
	GetName() string

	// GetInputParam returns the context key the command reads its primary
	// input from.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its primary
	// output to.
	GetOutputParam() string

	// IsExecutable reports whether the command's preconditions hold for the
	// current state of the context.
	IsExecutable(context Context) bool

	// GetTracer returns the command's OpenTelemetry tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's OpenTelemetry meter.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the counter incremented on success.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the counter incremented on failure.
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains may be nested to compose larger workflows.
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing after a
	// command records an error. The default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
