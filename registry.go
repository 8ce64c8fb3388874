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

import "sync"

// Registry binds one Tracer to each concurrency unit. A unit is any
// comparable value the caller uses to identify a goroutine or task, such
// as a request id or a worker index.
type Registry struct {
	mu      sync.Mutex
	tracers map[interface{}]*Tracer
	opts    []TracerOption
}

// NewRegistry returns an empty Registry whose lazily created tracers are
// built with opts.
func NewRegistry(opts ...TracerOption) *Registry {
	return &Registry{
		tracers: make(map[interface{}]*Tracer),
		opts:    opts,
	}
}

// Get returns the tracer of unit, creating it on first access.
func (r *Registry) Get(unit interface{}) *Tracer {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tracers[unit]
	if !ok {
		t = NewTracer(r.opts...)
		r.tracers[unit] = t
	}
	return t
}

// Set binds t to unit. A nil t removes the binding, so the next Get creates
// a fresh tracer.
func (r *Registry) Set(unit interface{}, t *Tracer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == nil {
		delete(r.tracers, unit)
		return
	}
	r.tracers[unit] = t
}

var defaultRegistry = NewRegistry()

// DefaultTracer returns the tracer bound to unit in the default registry.
func DefaultTracer(unit interface{}) *Tracer {
	return defaultRegistry.Get(unit)
}

// SetDefaultTracer binds t to unit in the default registry; nil unbinds.
func SetDefaultTracer(unit interface{}, t *Tracer) {
	defaultRegistry.Set(unit, t)
}
