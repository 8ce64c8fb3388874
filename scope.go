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
	"net"
	"time"

	"go.uber.org/multierr"

	"github.com/openzipkin-contrib/zipkin-go-scope/encoding"
	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

type scopeState int

const (
	stateCreated scopeState = iota
	stateStarted
	stateStopped
	stateFlushed
	stateDiscarded
)

var stateNames = [...]string{"created", "started", "stopped", "flushed", "discarded"}

func (s scopeState) String() string { return stateNames[s] }

// Scope is the lifecycle of one span: it is created, started, annotated
// while the work runs, and stopped exactly once. Stopping a local root
// flushes every span recorded under it.
//
// A scope that has neither a transport nor an active parent context is a
// pass-through: it records nothing and leaves the context stack alone.
type Scope struct {
	tracer *Tracer
	name   string
	opts   scopeOptions
	state  scopeState

	attrs       ZipkinAttrs
	passThrough bool
	root        bool

	hostIPv4, hostIPv6 net.IP
	endpoint           *models.Endpoint
	remote             *models.Endpoint
	start              time.Time
	duration           *time.Duration
	tags               map[string]string
	annotations        []models.Annotation

	event func(SpanEvent)
}

// NewScope validates opts and returns a scope in the created state.
func (t *Tracer) NewScope(name string, opts ...ScopeOption) (*Scope, error) {
	o := scopeOptions{
		encoding:         encoding.V2JSON,
		maxSpanBatchSize: DefaultMaxSpanBatchSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	host, err := models.NewEndpoint("", o.host, 0)
	if err != nil {
		return nil, err
	}

	s := &Scope{
		tracer:      t,
		name:        name,
		opts:        o,
		hostIPv4:    host.IPv4,
		hostIPv6:    host.IPv6,
		duration:    o.duration,
		tags:        make(map[string]string, len(o.tags)),
		annotations: append([]models.Annotation(nil), o.annotations...),
	}
	for k, v := range o.tags {
		s.tags[k] = v
	}
	return s, nil
}

// Start pushes the context of the scope onto the tracer's stack and starts
// the clock. A scope with a transport and no active context is a local
// root; a scope under an active context is its child.
func (s *Scope) Start() error {
	if s.state != stateCreated {
		return models.Configurationf("span %q already started", s.name)
	}
	s.state = stateStarted

	t := s.tracer
	current, nested := t.ZipkinAttrs()
	switch {
	case s.opts.transport != nil && !nested:
		attrs, ok := s.rootAttrs()
		if !ok {
			s.passThrough = true
			return nil
		}
		s.root = true
		s.attrs = attrs
		t.SetTransportConfigured(true)
	case nested:
		if s.opts.transport != nil {
			t.log("msg", "ignoring transport of nested span", "span", s.name)
		}
		s.attrs = current.child(t.idGenerator(false))
	default:
		s.passThrough = true
		return nil
	}

	s.endpoint = s.localEndpoint()
	if s.root {
		t.endpoint = s.endpoint
	}
	t.PushZipkinAttrs(s.attrs)
	s.start = t.opts.clock.Now()

	if t.opts.newSpanEventListener != nil {
		s.event = t.opts.newSpanEventListener()
	}
	s.onCreate()
	return nil
}

// rootAttrs returns the context of a local root, false when there is none
// to record under. A propagated context is continued as is, except that an
// unsampled one gets a fresh decision when a sample rate is set.
func (s *Scope) rootAttrs() (ZipkinAttrs, bool) {
	t := s.tracer
	in, rate := s.opts.attrs, s.opts.sampleRate
	switch {
	case in != nil && rate != nil && !in.IsSampled:
		attrs := *in
		attrs.IsSampled = t.opts.sampler.IsSampled(attrs.TraceID, *rate)
		return attrs, true
	case in != nil:
		attrs := *in
		if attrs.Debug() {
			attrs.IsSampled = true
		}
		return attrs, true
	case rate != nil:
		attrs := newTraceAttrs(t.idGenerator(s.opts.use128Bit))
		attrs.IsSampled = t.opts.sampler.IsSampled(attrs.TraceID, *rate)
		return attrs, true
	}
	return ZipkinAttrs{}, false
}

// localEndpoint starts from the endpoint of the current root and applies
// the fields set on this scope.
func (s *Scope) localEndpoint() *models.Endpoint {
	var e models.Endpoint
	if !s.root && s.tracer.endpoint != nil {
		e = *s.tracer.endpoint
	}
	if s.opts.serviceName != "" {
		e.ServiceName = s.opts.serviceName
	}
	if s.hostIPv4 != nil || s.hostIPv6 != nil {
		e.IPv4, e.IPv6 = s.hostIPv4, s.hostIPv6
	}
	if s.opts.port != 0 {
		e.Port = s.opts.port
	}
	if e.Empty() {
		return nil
	}
	return &e
}

func (s *Scope) active() bool {
	return s.state == stateStarted && !s.passThrough
}

// ZipkinAttrs returns the context of the scope, e.g. to propagate it to a
// downstream service. It returns false for a pass-through scope.
func (s *Scope) ZipkinAttrs() (ZipkinAttrs, bool) {
	return s.attrs, s.state != stateCreated && !s.passThrough
}

// Tracer returns the tracer the scope records into.
func (s *Scope) Tracer() *Tracer { return s.tracer }

// IsRoot reports whether the scope flushes the spans recorded under it.
func (s *Scope) IsRoot() bool { return s.root }

// Name returns the current span name.
func (s *Scope) Name() string { return s.name }

// SetName renames the span.
func (s *Scope) SetName(name string) {
	if s.active() {
		s.name = name
	}
}

// SetTag sets a tag, replacing any previous value of key.
func (s *Scope) SetTag(key, value string) {
	if !s.active() {
		return
	}
	s.tags[key] = value
	s.onTag(key, value)
}

// SetTags sets every tag of tags.
func (s *Scope) SetTags(tags map[string]string) {
	for k, v := range tags {
		s.SetTag(k, v)
	}
}

// SetError tags the span with the error message.
func (s *Scope) SetError(err error) {
	if err != nil {
		s.SetTag("error", err.Error())
	}
}

// Annotate records an event at the given time. Annotating the same value
// twice keeps the later time.
func (s *Scope) Annotate(value string, at time.Time) {
	if !s.active() {
		return
	}
	a := models.Annotation{Timestamp: at.UnixMicro(), Value: value}
	s.annotations = append(s.annotations, a)
	s.onAnnotate(a)
}

// AnnotateNow records an event at the current time.
func (s *Scope) AnnotateNow(value string) {
	s.Annotate(value, s.tracer.opts.clock.Now())
}

// AddRemoteEndpoint sets the peer of the span, for calls to services that
// are not traced themselves. host must be an IP address or empty. It may
// be called once per scope.
func (s *Scope) AddRemoteEndpoint(port uint16, serviceName, host string) error {
	if s.remote != nil {
		return models.Configurationf("remote endpoint of span %q already set", s.name)
	}
	e, err := models.NewEndpoint(serviceName, host, port)
	if err != nil {
		return err
	}
	s.remote = &e
	return nil
}

// OverrideDuration replaces the measured duration of the span.
func (s *Scope) OverrideDuration(d time.Duration) {
	s.duration = &d
}

// Stop ends the span and pops its context. The span is recorded when its
// trace is sampled and a transport is configured; stopping a local root
// flushes all recorded spans. Encoding errors are returned, transport
// errors are only logged.
func (s *Scope) Stop() error {
	switch s.state {
	case stateCreated:
		return models.Configurationf("span %q stopped before it started", s.name)
	case stateStarted:
	default:
		return models.Configurationf("span %q already stopped", s.name)
	}
	s.state = stateStopped
	if s.passThrough {
		s.state = stateDiscarded
		return nil
	}

	t := s.tracer
	elapsed := t.opts.clock.Since(s.start)
	if s.duration != nil {
		elapsed = *s.duration
	}

	if top, ok := t.ZipkinAttrs(); !ok || top != s.attrs {
		// spans started under this one are abandoned with it
		t.unwindTo(s.attrs)
		if s.root {
			s.reset()
		}
		s.state = stateDiscarded
		return models.Configurationf("span %q is not the current span", s.name)
	}
	t.PopZipkinAttrs()

	var errs error
	recorded := false
	if s.attrs.IsSampled && t.IsTransportConfigured() {
		span, err := s.span(elapsed)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			t.AddSpan(span)
			recorded = true
		}
	}
	s.onFinish(elapsed, recorded)

	if s.root {
		errs = multierr.Append(errs, s.flush())
		s.reset()
	}

	s.state = stateDiscarded
	if recorded {
		s.state = stateFlushed
	}
	return errs
}

// reset drops the state a local root owns on its tracer.
func (s *Scope) reset() {
	t := s.tracer
	t.Clear()
	t.SetTransportConfigured(false)
	t.endpoint = nil
}

func (s *Scope) span(elapsed time.Duration) (models.Span, error) {
	start := s.start
	if s.opts.timestamp != nil {
		start = *s.opts.timestamp
	}
	return models.NewSpan(models.SpanParams{
		TraceID:        s.attrs.TraceID,
		ID:             s.attrs.SpanID,
		ParentID:       s.attrs.ParentSpanID,
		Kind:           s.opts.kind,
		Name:           s.name,
		Timestamp:      start.UnixMicro(),
		Duration:       elapsed.Microseconds(),
		LocalEndpoint:  s.endpoint,
		RemoteEndpoint: s.remote,
		Annotations:    s.annotations,
		Tags:           s.tags,
		Debug:          s.attrs.Debug(),
		Shared:         s.opts.kind == models.Server && s.attrs.ParentSpanID != "",
	})
}
