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

package ot

import (
	opentracing "github.com/opentracing/opentracing-go"

	zipkintracer "github.com/openzipkin-contrib/zipkin-go-scope"
	"github.com/openzipkin-contrib/zipkin-go-scope/propagation/b3"
)

// B3InjectOption type holds information on B3 injection style when using
// native OpenTracing HTTPHeadersCarrier.
type B3InjectOption int

// Available B3InjectOption values
const (
	B3InjectStandard B3InjectOption = iota
	B3InjectSingle
	B3InjectBoth
)

// WithB3InjectOption sets the B3 injection style if using the native OpenTracing HTTPHeadersCarrier
func WithB3InjectOption(b3InjectOption B3InjectOption) TracerOption {
	return func(opts *TracerOptions) {
		opts.b3InjectOpt = b3InjectOption
	}
}

type textMapPropagator struct {
	tracer *tracerImpl
}

func (p *textMapPropagator) Inject(spanContext opentracing.SpanContext, carrier interface{}) error {
	sc, ok := spanContext.(SpanContext)
	if !ok {
		return opentracing.ErrInvalidSpanContext
	}
	attrs := zipkintracer.ZipkinAttrs(sc)

	switch p.tracer.opts.b3InjectOpt {
	case B3InjectSingle:
		return b3.InjectSingleHTTP(attrs, carrier)
	case B3InjectBoth:
		if err := b3.InjectSingleHTTP(attrs, carrier); err != nil {
			return err
		}
	}
	return b3.InjectHTTP(attrs, carrier)
}

func (p *textMapPropagator) Extract(carrier interface{}) (opentracing.SpanContext, error) {
	attrs, err := b3.ExtractHTTP(carrier)
	if err != nil {
		return nil, err
	}
	return SpanContext(attrs), nil
}

type accessorPropagator struct {
	tracer *tracerImpl
}

// DelegatingCarrier is a flexible carrier interface which can be implemented
// by types which have a means of storing the trace metadata and already know
// how to serialize themselves (for example, protocol buffers).
type DelegatingCarrier interface {
	SetState(traceID, spanID, parentSpanID string, sampled bool)
	State() (traceID, spanID, parentSpanID string, sampled bool)
	SetBaggageItem(key, value string)
	GetBaggage(func(key, value string))
}

func (p *accessorPropagator) Inject(
	spanContext opentracing.SpanContext,
	carrier interface{},
) error {
	ac, ok := carrier.(DelegatingCarrier)
	if !ok || ac == nil {
		return opentracing.ErrInvalidCarrier
	}
	sc, ok := spanContext.(SpanContext)
	if !ok {
		return opentracing.ErrInvalidSpanContext
	}
	ac.SetState(sc.TraceID, sc.SpanID, sc.ParentSpanID, sc.IsSampled)
	return nil
}

func (p *accessorPropagator) Extract(
	carrier interface{},
) (opentracing.SpanContext, error) {
	ac, ok := carrier.(DelegatingCarrier)
	if !ok || ac == nil {
		return nil, opentracing.ErrInvalidCarrier
	}

	traceID, spanID, parentSpanID, sampled := ac.State()
	sc := SpanContext{
		TraceID:      traceID,
		SpanID:       spanID,
		ParentSpanID: parentSpanID,
		IsSampled:    sampled,
	}
	if sc.Empty() {
		return nil, opentracing.ErrSpanContextNotFound
	}
	return sc, nil
}
