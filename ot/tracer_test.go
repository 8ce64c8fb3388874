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
	"bytes"
	"net/http"
	"testing"
	"time"

	otobserver "github.com/opentracing-contrib/go-observer"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
	"github.com/openzipkin/zipkin-go/model"
	"github.com/openzipkin/zipkin-go/reporter"
	"github.com/openzipkin/zipkin-go/reporter/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	zipkintracer "github.com/openzipkin-contrib/zipkin-go-scope"
	"github.com/openzipkin-contrib/zipkin-go-scope/encoding"
	"github.com/openzipkin-contrib/zipkin-go-scope/logging"
	"github.com/openzipkin-contrib/zipkin-go-scope/transport"
	"github.com/openzipkin-contrib/zipkin-go-scope/wire"
)

func newTracer(t *testing.T, r reporter.Reporter, tr *zipkintracer.Tracer, opts ...TracerOption) opentracing.Tracer {
	t.Helper()
	h, err := transport.NewReporterHandler(r, encoding.V2JSON)
	require.NoError(t, err)
	if tr == nil {
		tr = zipkintracer.NewTracer()
	}
	return Wrap(tr, append([]TracerOption{
		WithTransport(h),
		WithSampleRate(100),
		WithServiceName("frontend"),
	}, opts...)...)
}

func TestSpan_SingleLoggedTaggedSpan(t *testing.T) {
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, nil)

	span := tracer.StartSpan("x")
	span.LogEventWithPayload("key1", "{\"user\": 123}")
	span.LogFields(log.String("key2", "value2"), log.Uint32("32bit", 4294967295))
	span.LogKV("key4", 4)
	span.SetTag("key3", "value3")
	span.Finish()
	spans := rec.Flush()
	require.Equal(t, 1, len(spans))
	assert.Equal(t, "x", spans[0].Name)
	assert.Equal(t, "frontend", spans[0].LocalEndpoint.ServiceName)
	assert.Equal(t, 4, len(spans[0].Annotations))
	assert.Equal(t, map[string]string{"key3": "value3"}, spans[0].Tags)
	assert.Equal(t, "key1:{\"user\": 123}", spans[0].Annotations[0].Value)
	assert.Equal(t, "key2:value2", spans[0].Annotations[1].Value)
	assert.Equal(t, "32bit:4294967295", spans[0].Annotations[2].Value)
	assert.Equal(t, "key4:4", spans[0].Annotations[3].Value)
}

func TestSpan_UnsampledSpansAreNotReported(t *testing.T) {
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, nil, WithSampleRate(0))

	span := tracer.StartSpan("x")
	span.SetTag("tag", "value")
	span.Finish()
	assert.Empty(t, rec.Flush())
}

func TestSpan_NoTransportRecordsNothing(t *testing.T) {
	tracer := Wrap(zipkintracer.NewTracer())

	span := tracer.StartSpan("x")
	sc, ok := span.Context().(SpanContext)
	require.True(t, ok)
	assert.True(t, sc.Empty())
	assert.Equal(t, opentracing.ErrInvalidCarrier, tracer.Inject(span.Context(), opentracing.HTTPHeaders, "carrier"))
	span.Finish()
}

func TestOTKindTagIsParsedSuccessfuly(t *testing.T) {
	tagCases := []map[string]interface{}{
		{string(ext.SpanKind): "server"},
		{"span.kind": "server"},
		{"span.kind": ext.SpanKindRPCServerEnum},
	}
	for _, tags := range tagCases {
		rec := recorder.NewReporter()
		tracer := newTracer(t, rec, nil)
		tracer.StartSpan("test", opentracing.Tags(tags)).Finish()

		spans := rec.Flush()
		require.Equal(t, 1, len(spans))
		assert.Equal(t, model.Server, spans[0].Kind)
		assert.Empty(t, spans[0].Tags)
	}
}

func TestOTKindTagIsCantBeParsed(t *testing.T) {
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, nil)
	tracer.StartSpan("test", opentracing.Tag{Key: "span.kind", Value: "banana"}).Finish()

	spans := rec.Flush()
	require.Equal(t, 1, len(spans))
	assert.Equal(t, model.Undetermined, spans[0].Kind)
	assert.Equal(t, "banana", spans[0].Tags["span.kind"])
}

func TestOptionsFromOTTags(t *testing.T) {
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, nil)

	span := tracer.StartSpan("test", opentracing.Tags{
		string(ext.PeerService): "service_a",
		"key":                   "value",
	})
	ext.PeerHostIPv4.Set(span, 0x0a000002)
	ext.PeerPort.Set(span, 5432)
	span.SetTag(string(ext.Error), false)
	span.SetTag(string(ext.SamplingPriority), uint16(1))
	span.SetTag(string(ext.SpanKind), "client")
	span.Finish()

	spans := rec.Flush()
	require.Equal(t, 1, len(spans))
	require.NotNil(t, spans[0].RemoteEndpoint)
	assert.Equal(t, "service_a", spans[0].RemoteEndpoint.ServiceName)
	assert.Equal(t, "10.0.0.2", spans[0].RemoteEndpoint.IPv4.String())
	assert.Equal(t, uint16(5432), spans[0].RemoteEndpoint.Port)
	assert.Equal(t, map[string]string{"key": "value"}, spans[0].Tags)
	assert.Equal(t, model.Undetermined, spans[0].Kind)
}

func TestSetOperationNameAndErrorTag(t *testing.T) {
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, nil)

	span := tracer.StartSpan("draft")
	span.SetOperationName("final")
	ext.Error.Set(span, true)
	span.SetBaggageItem("k", "v")
	assert.Equal(t, "", span.BaggageItem("k"))
	assert.Same(t, tracer, span.Tracer())
	span.Finish()

	spans := rec.Flush()
	require.Equal(t, 1, len(spans))
	assert.Equal(t, "final", spans[0].Name)
	assert.Equal(t, "true", spans[0].Tags["error"])
}

func TestNestedSpansShareTrace(t *testing.T) {
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, nil)

	parent := tracer.StartSpan("parent")
	child := tracer.StartSpan("child", opentracing.ChildOf(parent.Context()))
	child.Finish()
	assert.Empty(t, rec.Flush(), "children are flushed with their root")
	parent.Finish()

	spans := rec.Flush()
	require.Equal(t, 2, len(spans))
	childSpan, parentSpan := spans[0], spans[1]
	assert.Equal(t, "child", childSpan.Name)
	assert.Equal(t, parentSpan.TraceID, childSpan.TraceID)
	require.NotNil(t, childSpan.ParentID)
	assert.Equal(t, parentSpan.ID, *childSpan.ParentID)
	assert.Nil(t, parentSpan.ParentID)
	assert.Equal(t, "frontend", childSpan.LocalEndpoint.ServiceName)
}

func TestExtractedContextIsContinued(t *testing.T) {
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, nil)

	headers := http.Header{}
	headers.Set("X-B3-TraceId", "463ac35c9f6413ad48485a3953bb6124")
	headers.Set("X-B3-SpanId", "a2fb4a1d1a96d312")
	headers.Set("X-B3-ParentSpanId", "0020000000000001")
	headers.Set("X-B3-Sampled", "1")

	sc, err := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(headers))
	require.NoError(t, err)

	span := tracer.StartSpan("get", ext.RPCServerOption(sc))
	span.Finish()

	spans := rec.Flush()
	require.Equal(t, 1, len(spans))
	assert.Equal(t, "463ac35c9f6413ad48485a3953bb6124", spans[0].TraceID.String())
	assert.Equal(t, "a2fb4a1d1a96d312", spans[0].ID.String())
	assert.Equal(t, model.Server, spans[0].Kind)
	assert.True(t, spans[0].Shared)
}

func TestExtractedUnsampledContextIsNotReported(t *testing.T) {
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, nil, WithSampleRate(0))

	carrier := opentracing.TextMapCarrier{
		"x-b3-traceid": "48485a3953bb6124",
		"x-b3-spanid":  "48485a3953bb6124",
		"x-b3-sampled": "0",
	}
	sc, err := tracer.Extract(opentracing.TextMap, carrier)
	require.NoError(t, err)

	tracer.StartSpan("get", opentracing.ChildOf(sc)).Finish()
	assert.Empty(t, rec.Flush())
}

func TestFinishWithOptions(t *testing.T) {
	clock := clockz.NewFakeClock()
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, zipkintracer.NewTracer(zipkintracer.WithClock(clock)))

	start := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	span := tracer.StartSpan("batch", opentracing.StartTime(start))
	span.FinishWithOptions(opentracing.FinishOptions{
		FinishTime: start.Add(3 * time.Second),
		LogRecords: []opentracing.LogRecord{{
			Timestamp: start.Add(time.Second),
			Fields:    []log.Field{log.String("event", "halfway")},
		}},
	})

	spans := rec.Flush()
	require.Equal(t, 1, len(spans))
	assert.Equal(t, start.UnixMicro(), spans[0].Timestamp.UnixMicro())
	assert.Equal(t, 3*time.Second, spans[0].Duration)
	require.Len(t, spans[0].Annotations, 1)
	assert.Equal(t, "event:halfway", spans[0].Annotations[0].Value)
	assert.Equal(t, start.Add(time.Second).UnixMicro(), spans[0].Annotations[0].Timestamp.UnixMicro())
}

func TestFinishMeasuresFromExplicitStartTime(t *testing.T) {
	clock := clockz.NewFakeClock()
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, zipkintracer.NewTracer(zipkintracer.WithClock(clock)))

	span := tracer.StartSpan("late", opentracing.StartTime(clock.Now().Add(-2*time.Second)))
	clock.Advance(time.Second)
	span.Finish()

	spans := rec.Flush()
	require.Equal(t, 1, len(spans))
	assert.Equal(t, 3*time.Second, spans[0].Duration)
}

type verbatimCarrier struct {
	SpanContext
	b map[string]string
}

var _ DelegatingCarrier = &verbatimCarrier{}

func (vc *verbatimCarrier) SetBaggageItem(k, v string) {
	vc.b[k] = v
}

func (vc *verbatimCarrier) GetBaggage(f func(string, string)) {
	for k, v := range vc.b {
		f(k, v)
	}
}

func (vc *verbatimCarrier) SetState(tID, sID, pID string, sampled bool) {
	vc.SpanContext = SpanContext{TraceID: tID, SpanID: sID, ParentSpanID: pID, IsSampled: sampled}
}

func (vc *verbatimCarrier) State() (traceID, spanID, parentSpanID string, sampled bool) {
	return vc.TraceID, vc.SpanID, vc.ParentSpanID, vc.IsSampled
}

func TestSpanPropagator(t *testing.T) {
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, nil)

	sp := tracer.StartSpan("test")
	want := sp.Context().(SpanContext)
	require.False(t, want.Empty())

	tests := []struct {
		typ, carrier interface{}
	}{
		{Delegator, DelegatingCarrier(&verbatimCarrier{b: map[string]string{}})},
		{opentracing.TextMap, opentracing.TextMapCarrier{}},
		{opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(http.Header{})},
	}

	for i, test := range tests {
		require.NoError(t, tracer.Inject(sp.Context(), test.typ, test.carrier), "%d", i)
		have, err := tracer.Extract(test.typ, test.carrier)
		require.NoError(t, err, "%d", i)
		assert.Equal(t, want, have, "%d", i)
	}
	sp.Finish()

	assert.Equal(t, opentracing.ErrInvalidCarrier, tracer.Inject(sp.Context(), opentracing.Binary, &bytes.Buffer{}))
	assert.Equal(t, opentracing.ErrUnsupportedFormat, tracer.Inject(sp.Context(), "json", nil))
	_, err := tracer.Extract("json", nil)
	assert.Equal(t, opentracing.ErrUnsupportedFormat, err)
	_, err = tracer.Extract(Delegator, &verbatimCarrier{})
	assert.Equal(t, opentracing.ErrSpanContextNotFound, err)
	assert.Equal(t, opentracing.ErrInvalidSpanContext, tracer.Inject(opentracing.NoopTracer{}.StartSpan("x").Context(), Delegator, &verbatimCarrier{}))
}

func TestB3InjectOptions(t *testing.T) {
	for _, tc := range []struct {
		opt           B3InjectOption
		single, multi bool
	}{
		{B3InjectStandard, false, true},
		{B3InjectSingle, true, false},
		{B3InjectBoth, true, true},
	} {
		tracer := newTracer(t, recorder.NewReporter(), nil, WithB3InjectOption(tc.opt))
		sp := tracer.StartSpan("test")

		carrier := opentracing.TextMapCarrier{}
		require.NoError(t, tracer.Inject(sp.Context(), opentracing.TextMap, carrier))
		_, hasSingle := carrier["b3"]
		_, hasMulti := carrier["x-b3-traceid"]
		assert.Equal(t, tc.single, hasSingle, "option %d", tc.opt)
		assert.Equal(t, tc.multi, hasMulti, "option %d", tc.opt)

		have, err := tracer.Extract(opentracing.TextMap, carrier)
		require.NoError(t, err)
		assert.Equal(t, sp.Context(), have)
		sp.Finish()
	}
}

type recordingObserver struct {
	events []string
	skip   bool
}

func (o *recordingObserver) OnStartSpan(sp opentracing.Span, operationName string, options opentracing.StartSpanOptions) (otobserver.SpanObserver, bool) {
	if o.skip {
		return nil, false
	}
	o.events = append(o.events, "start:"+operationName)
	return o, true
}

func (o *recordingObserver) OnSetOperationName(operationName string) {
	o.events = append(o.events, "name:"+operationName)
}

func (o *recordingObserver) OnSetTag(key string, value interface{}) {
	o.events = append(o.events, "tag:"+key)
}

func (o *recordingObserver) OnFinish(options opentracing.FinishOptions) {
	o.events = append(o.events, "finish")
}

func TestObservers(t *testing.T) {
	first, second, skipped := &recordingObserver{}, &recordingObserver{}, &recordingObserver{skip: true}
	tracer := newTracer(t, recorder.NewReporter(), nil,
		WithObserver(first), WithObserver(skipped), WithObserver(second))

	sp := tracer.StartSpan("x")
	sp.SetOperationName("y")
	sp.SetTag("k", "v")
	sp.Finish()

	want := []string{"start:x", "name:y", "tag:k", "finish"}
	assert.Equal(t, want, first.events)
	assert.Equal(t, want, second.events)
	assert.Empty(t, skipped.events)
}

func TestDelegatorRoundTripThroughWireCarrier(t *testing.T) {
	rec := recorder.NewReporter()
	client := newTracer(t, rec, nil)

	sp := client.StartSpan("send")
	want := sp.Context().(SpanContext)

	out := &wire.Carrier{}
	require.NoError(t, client.Inject(sp.Context(), Delegator, out))
	data, err := out.Marshal()
	require.NoError(t, err)
	sp.Finish()

	in := &wire.Carrier{}
	require.NoError(t, in.Unmarshal(data))
	server := newTracer(t, rec, nil)
	sc, err := server.Extract(Delegator, in)
	require.NoError(t, err)
	assert.Equal(t, want, sc)

	server.StartSpan("receive", ext.RPCServerOption(sc)).Finish()

	spans := rec.Flush()
	require.Equal(t, 2, len(spans))
	assert.Equal(t, spans[0].TraceID, spans[1].TraceID)
	assert.Equal(t, spans[0].ID, spans[1].ID)
	assert.Equal(t, model.Server, spans[1].Kind)
}

func TestFinishErrorsAreLogged(t *testing.T) {
	var logged [][]interface{}
	logger := logging.LoggerFunc(func(keyvals ...interface{}) error {
		logged = append(logged, keyvals)
		return nil
	})
	rec := recorder.NewReporter()
	tracer := newTracer(t, rec, nil, WithLogger(logger))

	parent := tracer.StartSpan("parent")
	child := tracer.StartSpan("child")
	parent.Finish()
	child.Finish()

	require.Len(t, logged, 2)
	assert.Equal(t, []interface{}{"msg", "finishing span failed", "span", "parent"}, logged[0][:4])
	assert.Equal(t, "err", logged[0][4])
	assert.Error(t, logged[0][5].(error))
	assert.Equal(t, "child", logged[1][3])
	assert.Empty(t, rec.Flush())

	// finishing out of order does not break later traces
	tracer.StartSpan("next").Finish()
	spans := rec.Flush()
	require.Equal(t, 1, len(spans))
	assert.Equal(t, "next", spans[0].Name)
	assert.Nil(t, spans[0].ParentID)
}
