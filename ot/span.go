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
	"fmt"
	"net"
	"strconv"
	"time"

	otobserver "github.com/opentracing-contrib/go-observer"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"

	zipkintracer "github.com/openzipkin-contrib/zipkin-go-scope"
)

type spanImpl struct {
	tracer        *tracerImpl
	scope         *zipkintracer.Scope
	observer      otobserver.SpanObserver
	startTime     time.Time
	explicitStart bool

	// remote endpoint, set on the scope when the span finishes
	peerService string
	peerHost    string
	peerPort    uint16
}

func (s *spanImpl) SetOperationName(operationName string) opentracing.Span {
	if s.observer != nil {
		s.observer.OnSetOperationName(operationName)
	}

	s.scope.SetName(operationName)
	return s
}

func (s *spanImpl) SetTag(key string, value interface{}) opentracing.Span {
	if s.observer != nil {
		s.observer.OnSetTag(key, value)
	}

	switch key {
	case string(ext.SamplingPriority):
		// there are no means for now to change the sampling decision
		return s
	case string(ext.SpanKind):
		// this tag is translated into kind which can
		// only be set on span creation
		return s
	case string(ext.PeerService), string(ext.PeerHostIPv4), string(ext.PeerHostIPv6), string(ext.PeerPort):
		s.setPeer(key, value)
		return s
	case string(ext.Error):
		if failed, ok := value.(bool); ok && !failed {
			return s
		}
	}

	s.scope.SetTag(key, fmt.Sprint(value))
	return s
}

func (s *spanImpl) setPeer(key string, value interface{}) {
	switch key {
	case string(ext.PeerService):
		s.peerService, _ = value.(string)
	case string(ext.PeerHostIPv4), string(ext.PeerHostIPv6):
		switch v := value.(type) {
		case string:
			s.peerHost = v
		case uint32:
			s.peerHost = net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)).String()
		case fmt.Stringer:
			s.peerHost = v.String()
		}
	case string(ext.PeerPort):
		switch v := value.(type) {
		case uint16:
			s.peerPort = v
		case int:
			s.peerPort = uint16(v)
		case string:
			port, _ := strconv.ParseUint(v, 10, 16)
			s.peerPort = uint16(port)
		}
	}
}

func (s *spanImpl) LogKV(keyValues ...interface{}) {
	fields, err := log.InterleavedKVToFields(keyValues...)
	if err != nil {
		return
	}

	s.logFields(s.tracer.tracer.Clock().Now(), fields...)
}

func (s *spanImpl) LogFields(fields ...log.Field) {
	s.logFields(s.tracer.tracer.Clock().Now(), fields...)
}

func (s *spanImpl) logFields(t time.Time, fields ...log.Field) {
	for _, field := range fields {
		s.scope.Annotate(field.String(), t)
	}
}

func (s *spanImpl) LogEvent(event string) {
	s.Log(opentracing.LogData{
		Event: event,
	})
}

func (s *spanImpl) LogEventWithPayload(event string, payload interface{}) {
	s.Log(opentracing.LogData{
		Event:   event,
		Payload: payload,
	})
}

func (s *spanImpl) Log(ld opentracing.LogData) {
	if ld.Timestamp.IsZero() {
		ld.Timestamp = s.tracer.tracer.Clock().Now()
	}

	annotation := ld.Event
	if ld.Payload != nil {
		annotation = fmt.Sprintf("%s:%v", ld.Event, ld.Payload)
	}
	s.scope.Annotate(annotation, ld.Timestamp)
}

func (s *spanImpl) Finish() {
	s.FinishWithOptions(opentracing.FinishOptions{})
}

func (s *spanImpl) FinishWithOptions(opts opentracing.FinishOptions) {
	if s.observer != nil {
		s.observer.OnFinish(opts)
	}

	for _, lr := range opts.LogRecords {
		s.logFields(lr.Timestamp, lr.Fields...)
	}

	if s.peerService != "" || s.peerHost != "" || s.peerPort != 0 {
		// an unusable peer address only loses the remote endpoint
		_ = s.scope.AddRemoteEndpoint(s.peerPort, s.peerService, s.peerHost)
	}

	switch {
	case !opts.FinishTime.IsZero():
		s.scope.OverrideDuration(opts.FinishTime.Sub(s.startTime))
	case s.explicitStart:
		s.scope.OverrideDuration(s.tracer.tracer.Clock().Since(s.startTime))
	}

	if err := s.scope.Stop(); err != nil {
		_ = s.tracer.opts.logger.Log("msg", "finishing span failed", "span", s.scope.Name(), "err", err)
	}
}

func (s *spanImpl) Tracer() opentracing.Tracer {
	return s.tracer
}

func (s *spanImpl) Context() opentracing.SpanContext {
	attrs, _ := s.scope.ZipkinAttrs()
	return SpanContext(attrs)
}

func (s *spanImpl) SetBaggageItem(key, val string) opentracing.Span {
	return s
}

func (s *spanImpl) BaggageItem(key string) string {
	return ""
}
