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

// Package ot exposes a zipkintracer.Tracer through the OpenTracing API.
//
// Spans are recorded through scopes, so they follow the scope rules: a
// span started while another is active becomes its child, and spans must
// finish in the reverse order they were started. Explicit parent
// references only matter for a span started without an active span, where
// they are continued as a propagated context.
package ot

import (
	"fmt"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	zipkintracer "github.com/openzipkin-contrib/zipkin-go-scope"
	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

type tracerImpl struct {
	tracer             *zipkintracer.Tracer
	textPropagator     *textMapPropagator
	accessorPropagator *accessorPropagator
	opts               *TracerOptions
	observer           observer
}

// Wrap receives a scope tracer and returns an opentracing tracer. Like tr,
// the result is meant for one concurrency unit.
func Wrap(tr *zipkintracer.Tracer, opts ...TracerOption) opentracing.Tracer {
	t := &tracerImpl{
		tracer: tr,
		opts:   &TracerOptions{logger: tr.Logger()},
	}
	t.textPropagator = &textMapPropagator{t}
	t.accessorPropagator = &accessorPropagator{t}

	for _, o := range opts {
		o(t.opts)
	}
	t.observer = observer{observers: t.opts.observers}

	return t
}

func (t *tracerImpl) StartSpan(operationName string, opts ...opentracing.StartSpanOption) opentracing.Span {
	var startSpanOptions opentracing.StartSpanOptions
	for _, opt := range opts {
		opt.Apply(&startSpanOptions)
	}

	sp := &spanImpl{tracer: t}
	sopts := sp.parseTags(startSpanOptions.Tags)

	if _, active := t.tracer.ZipkinAttrs(); !active {
		sopts = append(sopts, t.opts.root...)
		for _, ref := range startSpanOptions.References {
			parent, ok := ref.ReferencedContext.(SpanContext)
			if ok && !parent.Empty() {
				sopts = append(sopts, zipkintracer.ZipkinAttrsOption(zipkintracer.ZipkinAttrs(parent)))
				break
			}
		}
	}

	sp.startTime = t.tracer.Clock().Now()
	if !startSpanOptions.StartTime.IsZero() {
		sopts = append(sopts, zipkintracer.Timestamp(startSpanOptions.StartTime))
		sp.startTime = startSpanOptions.StartTime
		sp.explicitStart = true
	}

	scope, err := t.tracer.StartSpan(operationName, sopts...)
	if err != nil {
		// invalid options only come from a bad parent context; start the
		// span as if it had none
		scope, err = t.tracer.StartSpan(operationName, append(sp.parseTags(startSpanOptions.Tags), t.opts.root...)...)
	}
	if err != nil {
		scope, _ = t.tracer.NewScope(operationName)
	}
	sp.scope = scope

	if len(t.observer.observers) > 0 {
		if obs, ok := t.observer.OnStartSpan(sp, operationName, startSpanOptions); ok {
			sp.observer = obs
		}
	}

	return sp
}

// parseTags turns the well known OpenTracing tags into scope options and
// remote endpoint fields; the others become plain tags.
func (s *spanImpl) parseTags(t map[string]interface{}) []zipkintracer.ScopeOption {
	var (
		opts = make([]zipkintracer.ScopeOption, 0)
		tags = map[string]string{}
	)

	for key, val := range t {
		switch key {
		case string(ext.SpanKind):
			if kind, ok := parseKind(val); ok {
				opts = append(opts, zipkintracer.Kind(kind))
				continue
			}
		case string(ext.PeerService), string(ext.PeerHostIPv4), string(ext.PeerHostIPv6), string(ext.PeerPort):
			s.setPeer(key, val)
			continue
		}
		tags[key] = fmt.Sprint(val)
	}

	if len(tags) > 0 {
		opts = append(opts, zipkintracer.Tags(tags))
	}
	return opts
}

func parseKind(val interface{}) (models.Kind, bool) {
	var kind string
	switch v := val.(type) {
	case string:
		kind = v
	case ext.SpanKindEnum:
		kind = string(v)
	default:
		return 0, false
	}
	k, err := models.ParseKind(strings.ToUpper(kind))
	return k, err == nil
}

type delegatorType struct{}

// Delegator is the format to use for DelegatingCarrier.
var Delegator delegatorType

func (t *tracerImpl) Inject(sc opentracing.SpanContext, format interface{}, carrier interface{}) error {
	switch format {
	case opentracing.TextMap, opentracing.HTTPHeaders:
		return t.textPropagator.Inject(sc, carrier)
	case opentracing.Binary:
		// try with textMapPropagator
		return t.textPropagator.Inject(sc, carrier)
	}
	if _, ok := format.(delegatorType); ok {
		return t.accessorPropagator.Inject(sc, carrier)
	}
	return opentracing.ErrUnsupportedFormat
}

func (t *tracerImpl) Extract(format interface{}, carrier interface{}) (opentracing.SpanContext, error) {
	switch format {
	case opentracing.TextMap, opentracing.HTTPHeaders:
		return t.textPropagator.Extract(carrier)
	case opentracing.Binary:
		// try with textMapPropagator
		return t.textPropagator.Extract(carrier)
	}
	if _, ok := format.(delegatorType); ok {
		return t.accessorPropagator.Extract(carrier)
	}
	return nil, opentracing.ErrUnsupportedFormat
}
