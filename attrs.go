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
	"github.com/openzipkin/zipkin-go/idgenerator"
	"github.com/openzipkin/zipkin-go/model"
)

// DebugFlags is the Flags value forcing a trace to be recorded.
const DebugFlags = "1"

// ZipkinAttrs is the causal context propagated from span to span: the ids
// of the current span and the sampling decision of its trace. An empty
// ParentSpanID marks a root span.
type ZipkinAttrs struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Flags        string
	IsSampled    bool
}

// Debug reports whether the trace was forced to be recorded.
func (a ZipkinAttrs) Debug() bool {
	return a.Flags == DebugFlags
}

// child returns the context of a new span under a, keeping its trace and
// sampling decision.
func (a ZipkinAttrs) child(gen idgenerator.IDGenerator) ZipkinAttrs {
	return ZipkinAttrs{
		TraceID:      a.TraceID,
		SpanID:       gen.SpanID(model.TraceID{}).String(),
		ParentSpanID: a.SpanID,
		Flags:        a.Flags,
		IsSampled:    a.IsSampled,
	}
}

// newTraceAttrs returns the context of a fresh root span. By zipkin
// convention the root span id equals the low 64 bits of the trace id.
func newTraceAttrs(gen idgenerator.IDGenerator) ZipkinAttrs {
	traceID := gen.TraceID()
	return ZipkinAttrs{
		TraceID: traceID.String(),
		SpanID:  gen.SpanID(traceID).String(),
	}
}
