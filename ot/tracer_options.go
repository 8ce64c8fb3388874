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
	otobserver "github.com/opentracing-contrib/go-observer"

	zipkintracer "github.com/openzipkin-contrib/zipkin-go-scope"
	"github.com/openzipkin-contrib/zipkin-go-scope/encoding"
	"github.com/openzipkin-contrib/zipkin-go-scope/logging"
	"github.com/openzipkin-contrib/zipkin-go-scope/transport"
)

// TracerOptions allows creating a customized Tracer.
type TracerOptions struct {
	observers   []otobserver.Observer
	root        []zipkintracer.ScopeOption
	b3InjectOpt B3InjectOption
	logger      logging.Logger
}

// TracerOption allows for functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
type TracerOption func(opts *TracerOptions)

// WithObserver registers an observer notified of every span. It may be
// given more than once.
func WithObserver(observer otobserver.Observer) TracerOption {
	return func(opts *TracerOptions) {
		opts.observers = append(opts.observers, observer)
	}
}

// WithLogger sets the logger receiving errors of finished spans. It
// defaults to the logger of the wrapped tracer.
func WithLogger(logger logging.Logger) TracerOption {
	return func(opts *TracerOptions) {
		opts.logger = logger
	}
}

// WithTransport sets the handler spans started without an active context
// flush to. Without a transport such spans record nothing.
func WithTransport(h transport.Handler) TracerOption {
	return WithScopeOptions(zipkintracer.Transport(h))
}

// WithEncoding sets the payload encoding of root spans.
func WithEncoding(enc encoding.Encoding) TracerOption {
	return WithScopeOptions(zipkintracer.WithEncoding(enc))
}

// WithSampleRate sets the percentage of new traces that are recorded.
func WithSampleRate(rate float64) TracerOption {
	return WithScopeOptions(zipkintracer.SampleRate(rate))
}

// WithServiceName sets the local service name of root spans; their
// children inherit it.
func WithServiceName(name string) TracerOption {
	return WithScopeOptions(zipkintracer.ServiceName(name))
}

// WithScopeOptions adds options applied to every root span.
func WithScopeOptions(options ...zipkintracer.ScopeOption) TracerOption {
	return func(opts *TracerOptions) {
		opts.root = append(opts.root, options...)
	}
}
