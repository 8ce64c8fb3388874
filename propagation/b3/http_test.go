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

package b3_test

import (
	stdHTTP "net/http"
	"testing"

	"github.com/opentracing/opentracing-go"
	zb3 "github.com/openzipkin/zipkin-go/propagation/b3"

	zipkintracer "github.com/openzipkin-contrib/zipkin-go-scope"
	"github.com/openzipkin-contrib/zipkin-go-scope/propagation/b3"
	"github.com/openzipkin-contrib/zipkin-go-scope/transport"
)

func TestHTTPExtractFlagsOnly(t *testing.T) {
	c := stdHTTP.Header{}
	c.Set(zb3.TraceID, "1")
	c.Set(zb3.SpanID, "2")
	c.Set(zb3.Flags, "1")

	attrs, err := b3.ExtractHTTP(c)
	if err != nil {
		t.Fatalf("Extract failed: %+v", err)
	}

	if want, have := true, attrs.Debug(); want != have {
		t.Errorf("Debug want %+v, have %+v", want, have)
	}
	// debug forces sampling
	if want, have := true, attrs.IsSampled; want != have {
		t.Errorf("IsSampled want %+v, have %+v", want, have)
	}
}

func TestHTTPExtractSampled(t *testing.T) {
	for value, sampled := range map[string]bool{"0": false, "1": true, "": false} {
		c := stdHTTP.Header{}
		c.Set(zb3.TraceID, "463ac35c9f6413ad48485a3953bb6124")
		c.Set(zb3.SpanID, "a2fb4a1d1a96d312")
		if value != "" {
			c.Set(zb3.Sampled, value)
		}

		attrs, err := b3.ExtractHTTP(opentracing.HTTPHeadersCarrier(c))
		if err != nil {
			t.Fatalf("Extract failed: %+v", err)
		}
		if want, have := sampled, attrs.IsSampled; want != have {
			t.Errorf("%q: IsSampled want %t, have %t", value, want, have)
		}
	}
}

func TestHTTPExtractIsCaseInsensitive(t *testing.T) {
	c := opentracing.TextMapCarrier{
		"X-B3-TraceId":      "0000000000000001",
		"X-B3-SpanId":       "0000000000000002",
		"X-B3-ParentSpanId": "0000000000000003",
		"X-B3-Sampled":      "1",
	}

	attrs, err := b3.ExtractHTTP(c)
	if err != nil {
		t.Fatalf("Extract failed: %+v", err)
	}

	want := zipkintracer.ZipkinAttrs{
		TraceID:      "0000000000000001",
		SpanID:       "0000000000000002",
		ParentSpanID: "0000000000000003",
		IsSampled:    true,
	}
	if want != attrs {
		t.Errorf("ZipkinAttrs want %+v, have %+v", want, attrs)
	}
}

func TestHTTPExtractErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		headers map[string]string
		err     error
	}{
		"invalid trace id":  {map[string]string{zb3.TraceID: "invalid_data"}, zb3.ErrInvalidTraceIDHeader},
		"invalid span id":   {map[string]string{zb3.SpanID: "invalid_data"}, zb3.ErrInvalidSpanIDHeader},
		"trace id only":     {map[string]string{zb3.TraceID: "1"}, zb3.ErrInvalidScope},
		"span id only":      {map[string]string{zb3.SpanID: "1"}, zb3.ErrInvalidScope},
		"parent id only":    {map[string]string{zb3.ParentSpanID: "1"}, zb3.ErrInvalidScopeParent},
		"invalid sampled":   {map[string]string{zb3.Sampled: "2"}, zb3.ErrInvalidSampledHeader},
		"sampled only":      {map[string]string{zb3.Sampled: "1"}, zb3.ErrEmptyContext},
		"no headers at all": {map[string]string{}, zb3.ErrEmptyContext},
		"invalid parent id": {map[string]string{
			zb3.TraceID:      "1",
			zb3.SpanID:       "2",
			zb3.ParentSpanID: "invalid_data",
		}, zb3.ErrInvalidParentSpanIDHeader},
	} {
		c := stdHTTP.Header{}
		for k, v := range tc.headers {
			c.Set(k, v)
		}
		if _, err := b3.ExtractHTTP(c); err != tc.err {
			t.Errorf("%s: Extract Error want %+v, have %+v", name, tc.err, err)
		}
	}
}

func TestHTTPInvalidCarrier(t *testing.T) {
	if _, err := b3.ExtractHTTP("headers"); err != opentracing.ErrInvalidCarrier {
		t.Errorf("Extract Error want %+v, have %+v", opentracing.ErrInvalidCarrier, err)
	}
	attrs := zipkintracer.ZipkinAttrs{TraceID: "0000000000000001", SpanID: "0000000000000002"}
	if err := b3.InjectHTTP(attrs, nil); err != opentracing.ErrInvalidCarrier {
		t.Errorf("Inject Error want %+v, have %+v", opentracing.ErrInvalidCarrier, err)
	}
}

func TestHTTPInjectEmptyContextError(t *testing.T) {
	err := b3.InjectHTTP(zipkintracer.ZipkinAttrs{}, stdHTTP.Header{})

	if want, have := zb3.ErrEmptyContext, err; want != have {
		t.Errorf("HTTPInject Error want %+v, have %+v", want, have)
	}
}

func TestHTTPInjectUnsampledTrace(t *testing.T) {
	c := stdHTTP.Header{}
	attrs := zipkintracer.ZipkinAttrs{TraceID: "0000000000000001", SpanID: "0000000000000002"}

	if err := b3.InjectHTTP(attrs, c); err != nil {
		t.Fatalf("Inject failed: %+v", err)
	}

	if want, have := "0", c.Get(zb3.Sampled); want != have {
		t.Errorf("Sampled want %s, have %s", want, have)
	}
	if want, have := "", c.Get(zb3.ParentSpanID); want != have {
		t.Errorf("ParentSpanID want empty, have %s", have)
	}
}

func TestHTTPInjectSampledAndDebugTrace(t *testing.T) {
	c := stdHTTP.Header{}
	attrs := zipkintracer.ZipkinAttrs{
		TraceID:   "0000000000000001",
		SpanID:    "0000000000000002",
		Flags:     zipkintracer.DebugFlags,
		IsSampled: true,
	}

	if err := b3.InjectHTTP(attrs, c); err != nil {
		t.Fatalf("Inject failed: %+v", err)
	}

	if want, have := "", c.Get(zb3.Sampled); want != have {
		t.Errorf("Sampled want empty, have %s", have)
	}
	if want, have := "1", c.Get(zb3.Flags); want != have {
		t.Errorf("Debug want %s, have %s", want, have)
	}
}

func TestHTTPRoundTrip(t *testing.T) {
	for _, want := range []zipkintracer.ZipkinAttrs{
		{TraceID: "463ac35c9f6413ad48485a3953bb6124", SpanID: "a2fb4a1d1a96d312", ParentSpanID: "0020000000000001", IsSampled: true},
		{TraceID: "48485a3953bb6124", SpanID: "a2fb4a1d1a96d312"},
		{TraceID: "48485a3953bb6124", SpanID: "48485a3953bb6124", Flags: zipkintracer.DebugFlags, IsSampled: true},
	} {
		c := stdHTTP.Header{}
		if err := b3.InjectHTTP(want, c); err != nil {
			t.Fatalf("Inject failed: %+v", err)
		}
		have, err := b3.ExtractHTTP(c)
		if err != nil {
			t.Fatalf("Extract failed: %+v", err)
		}
		if want != have {
			t.Errorf("ZipkinAttrs want %+v, have %+v", want, have)
		}
	}
}

func TestNewSpanHeaders(t *testing.T) {
	tracer := zipkintracer.NewTracer()
	if headers := b3.NewSpanHeaders(tracer); len(headers) != 0 {
		t.Errorf("headers want empty, have %+v", headers)
	}

	scope, err := tracer.StartSpan("get",
		zipkintracer.ServiceName("frontend"),
		zipkintracer.Transport(transport.NewMemoryHandler(0)),
		zipkintracer.ZipkinAttrsOption(zipkintracer.ZipkinAttrs{
			TraceID:   "48485a3953bb6124",
			SpanID:    "a2fb4a1d1a96d312",
			IsSampled: true,
		}),
	)
	if err != nil {
		t.Fatalf("StartSpan failed: %+v", err)
	}
	defer scope.Stop()

	headers := b3.NewSpanHeaders(tracer)
	if want, have := "48485a3953bb6124", headers["x-b3-traceid"]; want != have {
		t.Errorf("TraceID want %s, have %s", want, have)
	}
	if want, have := "a2fb4a1d1a96d312", headers["x-b3-parentspanid"]; want != have {
		t.Errorf("ParentSpanID want %s, have %s", want, have)
	}
	if have := headers["x-b3-spanid"]; len(have) != 16 || have == "a2fb4a1d1a96d312" {
		t.Errorf("SpanID want a new id, have %q", have)
	}
	if want, have := "1", headers["x-b3-sampled"]; want != have {
		t.Errorf("Sampled want %s, have %s", want, have)
	}
}

func TestHTTPSingleHeaderRoundTrip(t *testing.T) {
	for _, want := range []zipkintracer.ZipkinAttrs{
		{TraceID: "463ac35c9f6413ad48485a3953bb6124", SpanID: "a2fb4a1d1a96d312", ParentSpanID: "0020000000000001", IsSampled: true},
		{TraceID: "48485a3953bb6124", SpanID: "a2fb4a1d1a96d312"},
		{TraceID: "48485a3953bb6124", SpanID: "48485a3953bb6124", Flags: zipkintracer.DebugFlags, IsSampled: true},
	} {
		c := stdHTTP.Header{}
		if err := b3.InjectSingleHTTP(want, c); err != nil {
			t.Fatalf("Inject failed: %+v", err)
		}
		if c.Get(zb3.Context) == "" {
			t.Fatalf("b3 header want set, have %+v", c)
		}
		have, err := b3.ExtractHTTP(c)
		if err != nil {
			t.Fatalf("Extract failed: %+v", err)
		}
		if want != have {
			t.Errorf("ZipkinAttrs want %+v, have %+v", want, have)
		}
	}
}

func TestHTTPSingleHeaderErrors(t *testing.T) {
	if err := b3.InjectSingleHTTP(zipkintracer.ZipkinAttrs{}, stdHTTP.Header{}); err != zb3.ErrEmptyContext {
		t.Errorf("Inject Error want %+v, have %+v", zb3.ErrEmptyContext, err)
	}
	bad := zipkintracer.ZipkinAttrs{TraceID: "not hex", SpanID: "0000000000000002"}
	if err := b3.InjectSingleHTTP(bad, stdHTTP.Header{}); err != zb3.ErrInvalidTraceIDHeader {
		t.Errorf("Inject Error want %+v, have %+v", zb3.ErrInvalidTraceIDHeader, err)
	}

	c := stdHTTP.Header{}
	c.Set(zb3.Context, "garbage")
	if _, err := b3.ExtractHTTP(c); err == nil {
		t.Error("Extract Error want non-nil, have nil")
	}
}
