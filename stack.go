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

// PushZipkinAttrs makes attrs the current context.
func (t *Tracer) PushZipkinAttrs(attrs ZipkinAttrs) {
	t.stack = append(t.stack, attrs)
}

// PopZipkinAttrs removes and returns the current context. It returns false
// on an empty stack.
func (t *Tracer) PopZipkinAttrs() (ZipkinAttrs, bool) {
	if len(t.stack) == 0 {
		return ZipkinAttrs{}, false
	}
	top := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return top, true
}

// unwindTo pops every context down to and including the topmost frame
// equal to attrs. The stack is left untouched when no frame matches.
func (t *Tracer) unwindTo(attrs ZipkinAttrs) {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if t.stack[i] == attrs {
			t.stack = t.stack[:i]
			return
		}
	}
}

// ZipkinAttrs returns the current context without removing it.
func (t *Tracer) ZipkinAttrs() (ZipkinAttrs, bool) {
	if len(t.stack) == 0 {
		return ZipkinAttrs{}, false
	}
	return t.stack[len(t.stack)-1], true
}

// UnitStack exposes the context stack of the default tracer of a
// concurrency unit.
//
// Deprecated: hold a *Tracer and use its PushZipkinAttrs, PopZipkinAttrs
// and ZipkinAttrs methods.
type UnitStack struct {
	Unit interface{}
}

// Push forwards to PushZipkinAttrs.
func (s UnitStack) Push(attrs ZipkinAttrs) {
	DefaultTracer(s.Unit).PushZipkinAttrs(attrs)
}

// Pop forwards to PopZipkinAttrs.
func (s UnitStack) Pop() (ZipkinAttrs, bool) {
	return DefaultTracer(s.Unit).PopZipkinAttrs()
}

// Get forwards to ZipkinAttrs.
func (s UnitStack) Get() (ZipkinAttrs, bool) {
	return DefaultTracer(s.Unit).ZipkinAttrs()
}

// NewChildZipkinAttrs returns the context of a span that would be created
// under the current context, without pushing it. It is meant for handing
// a fresh span context to a downstream call. It returns false on an empty
// stack.
func (t *Tracer) NewChildZipkinAttrs() (ZipkinAttrs, bool) {
	current, ok := t.ZipkinAttrs()
	if !ok {
		return ZipkinAttrs{}, false
	}
	return current.child(t.ids64), true
}
