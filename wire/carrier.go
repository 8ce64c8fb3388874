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

// Package wire carries span contexts across boundaries that are neither
// HTTP nor text maps, e.g. message queue envelopes.
package wire

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TracerState is the serialized form of a span context.
type TracerState struct {
	TraceID      string            `json:"traceId"`
	SpanID       string            `json:"spanId"`
	ParentSpanID string            `json:"parentSpanId,omitempty"`
	Sampled      bool              `json:"sampled"`
	BaggageItems map[string]string `json:"baggage,omitempty"`
}

// Carrier is a DelegatingCarrier backed by a TracerState. It is used with
// the ot.Delegator format and serialized with Marshal and Unmarshal.
type Carrier TracerState

// SetState set's the tracer state.
func (p *Carrier) SetState(traceID, spanID, parentSpanID string, sampled bool) {
	p.TraceID = traceID
	p.SpanID = spanID
	p.ParentSpanID = parentSpanID
	p.Sampled = sampled
}

// State returns the tracer state.
func (p *Carrier) State() (traceID, spanID, parentSpanID string, sampled bool) {
	return p.TraceID, p.SpanID, p.ParentSpanID, p.Sampled
}

// SetBaggageItem sets a baggage item.
func (p *Carrier) SetBaggageItem(key, value string) {
	if p.BaggageItems == nil {
		p.BaggageItems = map[string]string{key: value}
		return
	}

	p.BaggageItems[key] = value
}

// GetBaggage iterates over each baggage item and executes the callback with
// the key:value pair.
func (p *Carrier) GetBaggage(f func(k, v string)) {
	for k, v := range p.BaggageItems {
		f(k, v)
	}
}

// Marshal serializes the carrier.
func (p *Carrier) Marshal() ([]byte, error) {
	b, err := json.Marshal((*TracerState)(p))
	return b, errors.Wrap(err, "marshaling tracer state")
}

// Unmarshal replaces the carrier with the serialized state in data.
func (p *Carrier) Unmarshal(data []byte) error {
	var state TracerState
	if err := json.Unmarshal(data, &state); err != nil {
		return errors.Wrap(err, "unmarshaling tracer state")
	}
	*p = Carrier(state)
	return nil
}
