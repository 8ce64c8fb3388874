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

// Package events bridges scope lifecycle events to other debugging tools.
package events

import (
	"golang.org/x/net/trace"

	zipkintracer "github.com/openzipkin-contrib/zipkin-go-scope"
)

// Family is the net/trace family spans are registered under.
const Family = "zipkin"

var newTrace = trace.New

// NetTraceIntegrator can be passed into a tracer with
// zipkintracer.WithSpanEventListener and causes all recorded spans to be
// registered with the net/trace endpoint.
var NetTraceIntegrator = func() func(zipkintracer.SpanEvent) {
	var tr trace.Trace
	return func(e zipkintracer.SpanEvent) {
		switch t := e.(type) {
		case zipkintracer.EventCreate:
			tr = newTrace(Family, t.Name)
			tr.LazyPrintf("trace %s span %s sampled=%t", t.Attrs.TraceID, t.Attrs.SpanID, t.Attrs.IsSampled)
		case zipkintracer.EventTag:
			if tr == nil {
				return
			}
			if t.Key == "error" {
				tr.SetError()
			}
			tr.LazyPrintf("%s=%s", t.Key, t.Value)
		case zipkintracer.EventAnnotate:
			if tr != nil {
				tr.LazyPrintf("%s (at %d)", t.Value, t.Timestamp)
			}
		case zipkintracer.EventFinish:
			if tr == nil {
				return
			}
			tr.LazyPrintf("finished after %s recorded=%t", t.Duration, t.Recorded)
			tr.Finish()
			tr = nil
		}
	}
}
