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

	"github.com/openzipkin-contrib/zipkin-go-scope/encoding"
	"github.com/openzipkin-contrib/zipkin-go-scope/models"
	"github.com/openzipkin-contrib/zipkin-go-scope/transport"
)

// DefaultMaxSpanBatchSize caps the number of spans sent in one payload.
const DefaultMaxSpanBatchSize = 100

type scopeOptions struct {
	serviceName      string
	attrs            *ZipkinAttrs
	transport        transport.Handler
	encoding         encoding.Encoding
	sampleRate       *float64
	use128Bit        bool
	kind             models.Kind
	host             string
	port             uint16
	tags             map[string]string
	annotations      []models.Annotation
	timestamp        *time.Time
	duration         *time.Duration
	maxSpanBatchSize int
}

// ScopeOption allows for functional options.
type ScopeOption func(opts *scopeOptions)

// ServiceName sets the service name of the local endpoint. Children
// without one inherit it from the root.
func ServiceName(name string) ScopeOption {
	return func(opts *scopeOptions) {
		opts.serviceName = name
	}
}

// ZipkinAttrsOption continues a propagated context, e.g. one extracted
// from inbound B3 headers. It only applies to a local root.
func ZipkinAttrsOption(attrs ZipkinAttrs) ScopeOption {
	return func(opts *scopeOptions) {
		opts.attrs = &attrs
	}
}

// Transport makes the scope a local root flushing to h.
func Transport(h transport.Handler) ScopeOption {
	return func(opts *scopeOptions) {
		opts.transport = h
	}
}

// WithEncoding sets the encoding the root flushes with. Defaults to V2JSON.
func WithEncoding(enc encoding.Encoding) ScopeOption {
	return func(opts *scopeOptions) {
		opts.encoding = enc
	}
}

// SampleRate sets the percentage (0 to 100) of new traces a root records.
func SampleRate(rate float64) ScopeOption {
	return func(opts *scopeOptions) {
		opts.sampleRate = &rate
	}
}

// Use128BitTraceID makes a root generate 128 bit trace ids.
func Use128BitTraceID(use bool) ScopeOption {
	return func(opts *scopeOptions) {
		opts.use128Bit = use
	}
}

// Kind sets the span kind. Leave it unset for a local span.
func Kind(kind models.Kind) ScopeOption {
	return func(opts *scopeOptions) {
		opts.kind = kind
	}
}

// Host sets the IP address of the local endpoint.
func Host(host string) ScopeOption {
	return func(opts *scopeOptions) {
		opts.host = host
	}
}

// Port sets the port of the local endpoint.
func Port(port uint16) ScopeOption {
	return func(opts *scopeOptions) {
		opts.port = port
	}
}

// Tags adds initial tags.
func Tags(tags map[string]string) ScopeOption {
	return func(opts *scopeOptions) {
		if opts.tags == nil {
			opts.tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			opts.tags[k] = v
		}
	}
}

// Annotations adds initial annotations; timestamps are in microseconds.
func Annotations(annotations ...models.Annotation) ScopeOption {
	return func(opts *scopeOptions) {
		opts.annotations = append(opts.annotations, annotations...)
	}
}

// Timestamp overrides the recorded start of the span.
func Timestamp(t time.Time) ScopeOption {
	return func(opts *scopeOptions) {
		opts.timestamp = &t
	}
}

// Duration overrides the measured duration of the span.
func Duration(d time.Duration) ScopeOption {
	return func(opts *scopeOptions) {
		opts.duration = &d
	}
}

// MaxSpanBatchSize caps the number of spans per payload a root sends.
func MaxSpanBatchSize(n int) ScopeOption {
	return func(opts *scopeOptions) {
		opts.maxSpanBatchSize = n
	}
}

func (o *scopeOptions) validate() error {
	if _, err := encoding.Get(o.encoding); err != nil {
		return err
	}
	if o.sampleRate != nil && (*o.sampleRate < 0 || *o.sampleRate > 100) {
		return models.Configurationf("sample rate %v must be between 0 and 100", *o.sampleRate)
	}
	if o.kind != 0 && o.kind.String() == "" {
		return models.Configurationf("unknown span kind %d", o.kind)
	}
	if o.maxSpanBatchSize < 1 {
		return models.Configurationf("max span batch size %d must be positive", o.maxSpanBatchSize)
	}
	if o.attrs != nil {
		if !models.ValidTraceID(o.attrs.TraceID) || !models.ValidID(o.attrs.SpanID) {
			return models.Configurationf("invalid propagated ids %q/%q", o.attrs.TraceID, o.attrs.SpanID)
		}
		if o.attrs.ParentSpanID != "" && !models.ValidID(o.attrs.ParentSpanID) {
			return models.Configurationf("invalid propagated parent id %q", o.attrs.ParentSpanID)
		}
	}
	return nil
}
