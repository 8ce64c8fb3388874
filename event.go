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
	"time"

	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

// A SpanEvent is emitted when a mutating command is called on a Scope.
type SpanEvent interface{}

// EventCreate is emitted when a Scope starts.
type EventCreate struct {
	Name  string
	Attrs ZipkinAttrs
}

// EventTag is received when SetTag is called.
type EventTag struct {
	Key   string
	Value string
}

// EventAnnotate is received when Annotate (or one of its derivatives) is
// called.
type EventAnnotate models.Annotation

// EventFinish is received when Stop is called. Recorded tells whether the
// span entered the buffer.
type EventFinish struct {
	Name     string
	Attrs    ZipkinAttrs
	Duration time.Duration
	Recorded bool
}

func (s *Scope) onCreate() {
	if s.event != nil {
		s.event(EventCreate{Name: s.name, Attrs: s.attrs})
	}
}

func (s *Scope) onTag(key, value string) {
	if s.event != nil {
		s.event(EventTag{Key: key, Value: value})
	}
}

func (s *Scope) onAnnotate(a models.Annotation) {
	if s.event != nil {
		s.event(EventAnnotate(a))
	}
}

func (s *Scope) onFinish(d time.Duration, recorded bool) {
	if s.event != nil {
		s.event(EventFinish{Name: s.name, Attrs: s.attrs, Duration: d, Recorded: recorded})
	}
}
