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

// Package zipkintracer records nested spans of work and ships them to a
// Zipkin collector.
//
// A Tracer keeps the causal context of the spans open on one concurrency
// unit (a goroutine, or a tree of goroutines sharing a context.Context) and
// buffers the spans finished under a local root until that root stops and
// flushes them through its transport:
//
//	t := zipkintracer.DefaultTracer(unit)
//	scope, err := t.StartSpan("get",
//		zipkintracer.ServiceName("frontend"),
//		zipkintracer.Transport(handler),
//		zipkintracer.SampleRate(100),
//	)
//	if err != nil {
//		return err
//	}
//	defer scope.Stop()
package zipkintracer

import (
	"time"

	"github.com/openzipkin/zipkin-go/idgenerator"
	"github.com/zoobzio/clockz"

	"github.com/openzipkin-contrib/zipkin-go-scope/logging"
	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

// interval during which the same transport error is logged once
const defaultLogErrorInterval = time.Minute

// Tracer holds the context stack, the finished-span buffer and the
// transport flag of one concurrency unit. A Tracer is not safe for
// concurrent use; callers sharing one across goroutines must serialize
// access.
type Tracer struct {
	stack               []ZipkinAttrs
	spans               []models.Span
	transportConfigured bool

	// local endpoint of the current root, inherited by its children
	endpoint *models.Endpoint

	opts       TracerOptions
	ids64      idgenerator.IDGenerator
	ids128     idgenerator.IDGenerator
	sendErrors *logging.StateLogger
}

// NewTracer returns a Tracer with an empty stack and buffer.
func NewTracer(opts ...TracerOption) *Tracer {
	t := &Tracer{
		opts: TracerOptions{
			clock:            clockz.RealClock,
			logger:           logging.NewNopLogger(),
			sampler:          defaultSampler(),
			logErrorInterval: defaultLogErrorInterval,
		},
		ids64:  idgenerator.NewRandom64(),
		ids128: idgenerator.NewRandom128(),
	}
	for _, o := range opts {
		o(&t.opts)
	}
	t.sendErrors = logging.NewStateLoggerWithClock(t.opts.logger, t.opts.logErrorInterval, t.opts.clock)
	return t
}

// AddSpan appends a finished span to the buffer.
func (t *Tracer) AddSpan(s models.Span) {
	t.spans = append(t.spans, s)
}

// Spans returns the buffered spans in the order they were added.
func (t *Tracer) Spans() []models.Span {
	return append([]models.Span(nil), t.spans...)
}

// DrainSpans returns the buffered spans and empties the buffer.
func (t *Tracer) DrainSpans() []models.Span {
	spans := t.spans
	t.spans = nil
	return spans
}

// Clear empties the buffer.
func (t *Tracer) Clear() {
	t.spans = nil
}

// SetTransportConfigured records whether the current root span has a
// transport to flush to.
func (t *Tracer) SetTransportConfigured(configured bool) {
	t.transportConfigured = configured
}

// IsTransportConfigured reports whether finished spans will be flushed.
func (t *Tracer) IsTransportConfigured() bool {
	return t.transportConfigured
}

// StartSpan creates a scope and starts it. Callers should defer Stop on the
// returned scope.
func (t *Tracer) StartSpan(name string, opts ...ScopeOption) (*Scope, error) {
	s, err := t.NewScope(name, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

// Clock returns the clock spans are timed with.
func (t *Tracer) Clock() clockz.Clock {
	return t.opts.clock
}

// Logger returns the logger given with WithLogger.
func (t *Tracer) Logger() logging.Logger {
	return t.opts.logger
}

func (t *Tracer) idGenerator(use128 bool) idgenerator.IDGenerator {
	if use128 {
		return t.ids128
	}
	return t.ids64
}

func (t *Tracer) log(keyvals ...interface{}) {
	_ = t.opts.logger.Log(keyvals...)
}
