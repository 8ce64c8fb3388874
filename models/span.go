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

package models

// Annotation is a timestamped event attached to a span. Timestamp is in
// microseconds since the epoch.
type Annotation struct {
	Timestamp int64
	Value     string
}

// SpanParams holds the values a Span is built from. Leave Kind at its zero
// value for a local span and ParentID empty for a root span.
type SpanParams struct {
	TraceID        string
	ID             string
	ParentID       string
	Kind           Kind
	Name           string
	Timestamp      int64
	Duration       int64
	LocalEndpoint  *Endpoint
	RemoteEndpoint *Endpoint
	Annotations    []Annotation
	Tags           map[string]string
	Debug          bool
	Shared         bool
}

// Span is one finished, timed unit of work. It is validated once by NewSpan
// and cannot be changed afterwards; accessors return copies.
type Span struct {
	traceID        string
	id             string
	parentID       string
	kind           Kind
	name           string
	timestamp      int64
	duration       int64
	localEndpoint  *Endpoint
	remoteEndpoint *Endpoint
	annotations    []Annotation
	tags           map[string]string
	debug          bool
	shared         bool
}

// NewSpan validates p and builds an immutable Span from it. Duplicate
// annotation values keep the position of the first and the timestamp of
// the last assignment.
func NewSpan(p SpanParams) (Span, error) {
	if !ValidTraceID(p.TraceID) {
		return Span{}, Configurationf("trace id %q must be 16 or 32 lowercase hex characters", p.TraceID)
	}
	if !ValidID(p.ID) {
		return Span{}, Configurationf("span id %q must be 16 lowercase hex characters", p.ID)
	}
	if p.ParentID != "" && !ValidID(p.ParentID) {
		return Span{}, Configurationf("parent id %q must be 16 lowercase hex characters", p.ParentID)
	}
	if p.Kind != 0 && !p.Kind.valid() {
		return Span{}, Configurationf("unknown span kind %d", p.Kind)
	}
	if p.Timestamp < 0 {
		return Span{}, Configurationf("negative timestamp %d", p.Timestamp)
	}
	if p.Duration < 0 {
		return Span{}, Configurationf("negative duration %d", p.Duration)
	}

	s := Span{
		traceID:   p.TraceID,
		id:        p.ID,
		parentID:  p.ParentID,
		kind:      p.Kind,
		name:      p.Name,
		timestamp: p.Timestamp,
		duration:  p.Duration,
		debug:     p.Debug,
		shared:    p.Shared,
	}
	if p.LocalEndpoint != nil {
		e := p.LocalEndpoint.clone()
		s.localEndpoint = &e
	}
	if p.RemoteEndpoint != nil {
		e := p.RemoteEndpoint.clone()
		s.remoteEndpoint = &e
	}

	index := make(map[string]int, len(p.Annotations))
	for _, a := range p.Annotations {
		if a.Timestamp < 0 {
			return Span{}, Configurationf("negative timestamp %d for annotation %q", a.Timestamp, a.Value)
		}
		if i, ok := index[a.Value]; ok {
			s.annotations[i].Timestamp = a.Timestamp
			continue
		}
		index[a.Value] = len(s.annotations)
		s.annotations = append(s.annotations, a)
	}

	if len(p.Tags) > 0 {
		s.tags = make(map[string]string, len(p.Tags))
		for k, v := range p.Tags {
			s.tags[k] = v
		}
	}
	return s, nil
}

// TraceID returns the lowercase hex trace id.
func (s Span) TraceID() string { return s.traceID }

// ID returns the lowercase hex span id.
func (s Span) ID() string { return s.id }

// ParentID returns the parent span id, if any.
func (s Span) ParentID() (string, bool) { return s.parentID, s.parentID != "" }

// Kind returns the span kind; ok is false for local spans.
func (s Span) Kind() (k Kind, ok bool) { return s.kind, s.kind != 0 }

// Name returns the span name.
func (s Span) Name() string { return s.name }

// Timestamp returns the start of the span in microseconds since the epoch,
// 0 if unknown.
func (s Span) Timestamp() int64 { return s.timestamp }

// Duration returns the span duration in microseconds.
func (s Span) Duration() int64 { return s.duration }

// LocalEndpoint returns the endpoint that recorded the span.
func (s Span) LocalEndpoint() (Endpoint, bool) {
	if s.localEndpoint == nil {
		return Endpoint{}, false
	}
	return s.localEndpoint.clone(), true
}

// RemoteEndpoint returns the peer of an RPC or messaging span.
func (s Span) RemoteEndpoint() (Endpoint, bool) {
	if s.remoteEndpoint == nil {
		return Endpoint{}, false
	}
	return s.remoteEndpoint.clone(), true
}

// Annotations returns the annotations in insertion order.
func (s Span) Annotations() []Annotation {
	if len(s.annotations) == 0 {
		return nil
	}
	return append([]Annotation(nil), s.annotations...)
}

// Tags returns a copy of the span tags.
func (s Span) Tags() map[string]string {
	if len(s.tags) == 0 {
		return nil
	}
	tags := make(map[string]string, len(s.tags))
	for k, v := range s.tags {
		tags[k] = v
	}
	return tags
}

// Debug reports whether the span was forced to be sampled.
func (s Span) Debug() bool { return s.debug }

// Shared reports whether the span id is shared with a client counterpart.
func (s Span) Shared() bool { return s.shared }

// Params returns the values the span was built from, e.g. to derive a
// modified copy through NewSpan.
func (s Span) Params() SpanParams {
	p := SpanParams{
		TraceID:     s.traceID,
		ID:          s.id,
		ParentID:    s.parentID,
		Kind:        s.kind,
		Name:        s.name,
		Timestamp:   s.timestamp,
		Duration:    s.duration,
		Annotations: s.Annotations(),
		Tags:        s.Tags(),
		Debug:       s.debug,
		Shared:      s.shared,
	}
	if e, ok := s.LocalEndpoint(); ok {
		p.LocalEndpoint = &e
	}
	if e, ok := s.RemoteEndpoint(); ok {
		p.RemoteEndpoint = &e
	}
	return p
}

// ValidTraceID reports whether id is a 64 or 128 bit lowercase hex id.
func ValidTraceID(id string) bool {
	return (len(id) == 16 || len(id) == 32) && lowerHex(id)
}

// ValidID reports whether id is a 64 bit lowercase hex id.
func ValidID(id string) bool {
	return len(id) == 16 && lowerHex(id)
}

func lowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
