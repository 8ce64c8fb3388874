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

import "context"

type ctxKey struct{}

var activeTracerKey = ctxKey{}

// WithTracer returns a copy of ctx carrying t.
func WithTracer(ctx context.Context, t *Tracer) context.Context {
	return context.WithValue(ctx, activeTracerKey, t)
}

// FromContext returns the tracer carried by ctx, if any.
func FromContext(ctx context.Context) (*Tracer, bool) {
	t, ok := ctx.Value(activeTracerKey).(*Tracer)
	return t, ok && t != nil
}
