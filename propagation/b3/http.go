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

// Package b3 moves zipkin span contexts in and out of B3 HTTP headers.
package b3

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go/model"
	zb3 "github.com/openzipkin/zipkin-go/propagation/b3"

	zipkintracer "github.com/openzipkin-contrib/zipkin-go-scope"
)

const (
	traceIDHeader      = "x-b3-traceid"
	spanIDHeader       = "x-b3-spanid"
	parentSpanIDHeader = "x-b3-parentspanid"
	sampledHeader      = "x-b3-sampled"
	flagsHeader        = "x-b3-flags"
	singleHeader       = "b3"
)

// InjectHTTP writes attrs as B3 headers. carrier must be an
// opentracing.TextMapWriter; an http.Header is one.
func InjectHTTP(attrs zipkintracer.ZipkinAttrs, carrier interface{}) error {
	c, ok := carrier.(opentracing.TextMapWriter)
	if !ok {
		return opentracing.ErrInvalidCarrier
	}

	if attrs.TraceID == "" || attrs.SpanID == "" {
		return zb3.ErrEmptyContext
	}

	c.Set(traceIDHeader, attrs.TraceID)
	c.Set(spanIDHeader, attrs.SpanID)
	if attrs.ParentSpanID != "" {
		c.Set(parentSpanIDHeader, attrs.ParentSpanID)
	}

	if attrs.Debug() {
		c.Set(flagsHeader, "1")
	} else if attrs.IsSampled {
		c.Set(sampledHeader, "1")
	} else {
		c.Set(sampledHeader, "0")
	}

	return nil
}

// ExtractHTTP reads B3 headers into a ZipkinAttrs. Header names are
// matched case-insensitively; the single b3 header is used when the
// multi header ids are absent. carrier must be an opentracing.TextMapReader
// or an http.Header. A carrier without trace and span ids yields
// zb3.ErrEmptyContext.
func ExtractHTTP(carrier interface{}) (zipkintracer.ZipkinAttrs, error) {
	if h, ok := carrier.(http.Header); ok {
		carrier = opentracing.HTTPHeadersCarrier(h)
	}
	c, ok := carrier.(opentracing.TextMapReader)
	if !ok {
		return zipkintracer.ZipkinAttrs{}, opentracing.ErrInvalidCarrier
	}

	var (
		traceID      string
		spanID       string
		parentSpanID string
		sampled      string
		flags        string
		single       string
	)

	err := c.ForeachKey(func(key, val string) error {
		switch strings.ToLower(key) {
		case traceIDHeader:
			traceID = val
		case spanIDHeader:
			spanID = val
		case parentSpanIDHeader:
			parentSpanID = val
		case sampledHeader:
			sampled = val
		case flagsHeader:
			flags = val
		case singleHeader:
			single = val
		}

		return nil
	})
	if err != nil {
		return zipkintracer.ZipkinAttrs{}, err
	}

	var sc *model.SpanContext
	if single != "" && traceID == "" && spanID == "" {
		sc, err = zb3.ParseSingleHeader(single)
	} else {
		sc, err = zb3.ParseHeaders(traceID, spanID, parentSpanID, sampled, flags)
	}
	if err != nil {
		return zipkintracer.ZipkinAttrs{}, err
	}
	if sc.TraceID.Empty() || sc.ID == 0 {
		return zipkintracer.ZipkinAttrs{}, zb3.ErrEmptyContext
	}
	return FromSpanContext(*sc), nil
}

// FromSpanContext converts a zipkin-go span context. A context that is
// neither sampled nor debug is unsampled.
func FromSpanContext(sc model.SpanContext) zipkintracer.ZipkinAttrs {
	attrs := zipkintracer.ZipkinAttrs{
		TraceID:   sc.TraceID.String(),
		SpanID:    sc.ID.String(),
		IsSampled: sc.Debug || (sc.Sampled != nil && *sc.Sampled),
	}
	if sc.ParentID != nil {
		attrs.ParentSpanID = sc.ParentID.String()
	}
	if sc.Debug {
		attrs.Flags = zipkintracer.DebugFlags
	}
	return attrs
}

// ToSpanContext converts attrs into a zipkin-go span context.
func ToSpanContext(attrs zipkintracer.ZipkinAttrs) (model.SpanContext, error) {
	traceID, err := model.TraceIDFromHex(attrs.TraceID)
	if err != nil {
		return model.SpanContext{}, zb3.ErrInvalidTraceIDHeader
	}
	spanID, err := strconv.ParseUint(attrs.SpanID, 16, 64)
	if err != nil {
		return model.SpanContext{}, zb3.ErrInvalidSpanIDHeader
	}
	sc := model.SpanContext{
		TraceID: traceID,
		ID:      model.ID(spanID),
		Debug:   attrs.Debug(),
	}
	if attrs.ParentSpanID != "" {
		parentID, err := strconv.ParseUint(attrs.ParentSpanID, 16, 64)
		if err != nil {
			return model.SpanContext{}, zb3.ErrInvalidParentSpanIDHeader
		}
		id := model.ID(parentID)
		sc.ParentID = &id
	}
	if !sc.Debug {
		sampled := attrs.IsSampled
		sc.Sampled = &sampled
	}
	return sc, nil
}

// InjectSingleHTTP writes attrs as a single b3 header.
func InjectSingleHTTP(attrs zipkintracer.ZipkinAttrs, carrier interface{}) error {
	c, ok := carrier.(opentracing.TextMapWriter)
	if !ok {
		return opentracing.ErrInvalidCarrier
	}
	if attrs.TraceID == "" || attrs.SpanID == "" {
		return zb3.ErrEmptyContext
	}
	sc, err := ToSpanContext(attrs)
	if err != nil {
		return err
	}
	c.Set(singleHeader, zb3.BuildSingleHeader(sc))
	return nil
}

// NewSpanHeaders returns the B3 headers of a new span under the tracer's
// current context, for an outgoing request. Without a current context the
// map is empty.
func NewSpanHeaders(t *zipkintracer.Tracer) map[string]string {
	headers := opentracing.TextMapCarrier{}
	attrs, ok := t.NewChildZipkinAttrs()
	if !ok {
		return headers
	}
	_ = InjectHTTP(attrs, headers)
	return headers
}
