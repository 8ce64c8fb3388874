// Copyright 2022 The OpenZipkin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package zipkintracer

import (
	"time"

	"github.com/zoobzio/clockz"

	"github.com/openzipkin-contrib/zipkin-go-scope/logging"
)

// TracerOptions allows creating a customized Tracer.
type TracerOptions struct {
	clock            clockz.Clock
	logger           logging.Logger
	sampler          Sampler
	logErrorInterval time.Duration
	// NewSpanEventListener can be used to enhance the tracer by effectively
	// attaching external code to trace events. See NetTraceIntegrator for a
	// practical example, and event.go for the list of possible events.
	newSpanEventListener func() func(SpanEvent)
}

// TracerOption allows for functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
type TracerOption func(opts *TracerOptions)

// WithClock sets the clock spans are timed with.
func WithClock(clock clockz.Clock) TracerOption {
	return func(opts *TracerOptions) {
		opts.clock = clock
	}
}

// WithLogger sets the logger receiving configuration warnings and
// transport errors.
func WithLogger(logger logging.Logger) TracerOption {
	return func(opts *TracerOptions) {
		opts.logger = logger
	}
}

// WithSampler sets the sampler deciding root spans with a sample rate.
func WithSampler(sampler Sampler) TracerOption {
	return func(opts *TracerOptions) {
		opts.sampler = sampler
	}
}

// WithLogErrorInterval sets how long a repeated transport error stays
// silent after being logged.
func WithLogErrorInterval(interval time.Duration) TracerOption {
	return func(opts *TracerOptions) {
		opts.logErrorInterval = interval
	}
}

// WithSpanEventListener registers a factory called once per started span;
// the returned function receives the events of that span.
func WithSpanEventListener(newListener func() func(SpanEvent)) TracerOption {
	return func(opts *TracerOptions) {
		opts.newSpanEventListener = newListener
	}
}
