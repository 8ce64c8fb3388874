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
	"context"
	"math/rand"
	"testing"

	"github.com/openzipkin/zipkin-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openzipkin-contrib/zipkin-go-scope/encoding"
	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

func TestContextStack(t *testing.T) {
	tracer := NewTracer()
	a := ZipkinAttrs{TraceID: "0000000000000001", SpanID: "0000000000000001"}
	b := ZipkinAttrs{TraceID: "0000000000000001", SpanID: "0000000000000002", ParentSpanID: "0000000000000001"}

	tracer.PushZipkinAttrs(a)
	tracer.PushZipkinAttrs(b)

	current, ok := tracer.ZipkinAttrs()
	require.True(t, ok)
	assert.Equal(t, b, current)

	popped, ok := tracer.PopZipkinAttrs()
	require.True(t, ok)
	assert.Equal(t, b, popped)
	popped, ok = tracer.PopZipkinAttrs()
	require.True(t, ok)
	assert.Equal(t, a, popped)

	_, ok = tracer.ZipkinAttrs()
	assert.False(t, ok)
	_, ok = tracer.PopZipkinAttrs()
	assert.False(t, ok)
}

func TestNewChildZipkinAttrs(t *testing.T) {
	tracer := NewTracer()
	_, ok := tracer.NewChildZipkinAttrs()
	assert.False(t, ok)

	parent := ZipkinAttrs{TraceID: "0000000000000001", SpanID: "0000000000000002", Flags: DebugFlags, IsSampled: true}
	tracer.PushZipkinAttrs(parent)

	child, ok := tracer.NewChildZipkinAttrs()
	require.True(t, ok)
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentSpanID)
	assert.Len(t, child.SpanID, 16)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
	assert.True(t, child.IsSampled)
	assert.True(t, child.Debug())

	current, _ := tracer.ZipkinAttrs()
	assert.Equal(t, parent, current)
}

func TestSpanBuffer(t *testing.T) {
	tracer := NewTracer()
	first, err := models.NewSpan(models.SpanParams{TraceID: "0000000000000001", ID: "0000000000000001"})
	require.NoError(t, err)
	second, err := models.NewSpan(models.SpanParams{TraceID: "0000000000000001", ID: "0000000000000002"})
	require.NoError(t, err)

	tracer.AddSpan(first)
	tracer.AddSpan(second)
	assert.Equal(t, []models.Span{first, second}, tracer.Spans())
	assert.Len(t, tracer.Spans(), 2)

	assert.Equal(t, []models.Span{first, second}, tracer.DrainSpans())
	assert.Empty(t, tracer.Spans())

	tracer.AddSpan(first)
	tracer.Clear()
	assert.Empty(t, tracer.DrainSpans())

	assert.False(t, tracer.IsTransportConfigured())
	tracer.SetTransportConfigured(true)
	assert.True(t, tracer.IsTransportConfigured())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	first := r.Get("worker-1")
	assert.Same(t, first, r.Get("worker-1"))
	assert.NotSame(t, first, r.Get("worker-2"))

	custom := NewTracer()
	r.Set("worker-1", custom)
	assert.Same(t, custom, r.Get("worker-1"))

	r.Set("worker-1", nil)
	fresh := r.Get("worker-1")
	assert.NotSame(t, custom, fresh)
	assert.NotSame(t, first, fresh)
}

func TestDefaultTracerAndUnitStack(t *testing.T) {
	unit := struct{ name string }{"unit-stack-test"}
	defer SetDefaultTracer(unit, nil)

	stack := UnitStack{Unit: unit}
	attrs := ZipkinAttrs{TraceID: "0000000000000001", SpanID: "0000000000000001"}
	stack.Push(attrs)

	got, ok := DefaultTracer(unit).ZipkinAttrs()
	require.True(t, ok)
	assert.Equal(t, attrs, got)

	got, ok = stack.Get()
	require.True(t, ok)
	assert.Equal(t, attrs, got)

	got, ok = stack.Pop()
	require.True(t, ok)
	assert.Equal(t, attrs, got)
	_, ok = stack.Get()
	assert.False(t, ok)
}

func TestTracerContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	tracer := NewTracer()
	got, ok := FromContext(WithTracer(context.Background(), tracer))
	require.True(t, ok)
	assert.Same(t, tracer, got)

	_, ok = FromContext(WithTracer(context.Background(), nil))
	assert.False(t, ok)
}

func TestSamplers(t *testing.T) {
	s := RandomSampler(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		assert.True(t, s.IsSampled("", 100))
		assert.False(t, s.IsSampled("", 0))
	}

	assert.True(t, FromZipkinSampler(zipkin.AlwaysSample).IsSampled("48485a3953bb6124", 0))
	assert.False(t, FromZipkinSampler(zipkin.NeverSample).IsSampled("48485a3953bb6124", 100))
	assert.False(t, FromZipkinSampler(zipkin.AlwaysSample).IsSampled("not hex", 100))

	var seen uint64
	FromZipkinSampler(func(id uint64) bool {
		seen = id
		return true
	}).IsSampled("463ac35c9f6413ad0000000000000010", 100)
	assert.Equal(t, uint64(16), seen)
}

func TestChunk(t *testing.T) {
	codec, err := encoding.Get(encoding.V2JSON)
	require.NoError(t, err)
	fragments := [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc"), []byte("dddddddddddddddd")}

	// unbounded
	assert.Equal(t, [][]byte{[]byte("[aaaa,bbbb,cccc,dddddddddddddddd]")}, chunk(codec, fragments, 0, 100))

	// [aaaa,bbbb] is 11 bytes; a third fragment would make 16
	assert.Equal(t, [][]byte{
		[]byte("[aaaa,bbbb]"),
		[]byte("[cccc]"),
		[]byte("[dddddddddddddddd]"),
	}, chunk(codec, fragments, 12, 100))

	assert.Equal(t, [][]byte{
		[]byte("[aaaa,bbbb]"),
		[]byte("[cccc,dddddddddddddddd]"),
	}, chunk(codec, fragments, 0, 2))

	assert.Empty(t, chunk(codec, nil, 10, 100))
}
