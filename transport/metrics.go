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

package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// InstrumentedHandler counts the payloads going through a Handler.
type InstrumentedHandler struct {
	next Handler

	payloads *prometheus.CounterVec
	bytes    prometheus.Counter
	size     prometheus.Histogram
}

// NewInstrumentedHandler wraps next, registering its collectors with reg.
// A nil reg registers them nowhere.
func NewInstrumentedHandler(next Handler, reg prometheus.Registerer) *InstrumentedHandler {
	factory := promauto.With(reg)
	return &InstrumentedHandler{
		next: next,
		payloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipkin_transport_payloads_total",
				Help: "Total number of span payloads handed to the transport",
			},
			[]string{"result"},
		),
		bytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "zipkin_transport_sent_bytes_total",
				Help: "Total number of payload bytes successfully sent",
			},
		),
		size: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "zipkin_transport_payload_size_bytes",
				Help:    "Size of span payloads in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
		),
	}
}

// Send implements Handler
func (h *InstrumentedHandler) Send(payload []byte) error {
	h.size.Observe(float64(len(payload)))
	if err := h.next.Send(payload); err != nil {
		h.payloads.WithLabelValues("error").Inc()
		return err
	}
	h.payloads.WithLabelValues("success").Inc()
	h.bytes.Add(float64(len(payload)))
	return nil
}

// MaxPayloadBytes implements Handler
func (h *InstrumentedHandler) MaxPayloadBytes() int { return h.next.MaxPayloadBytes() }
