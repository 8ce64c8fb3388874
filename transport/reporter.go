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
	jsoniter "github.com/json-iterator/go"
	"github.com/openzipkin/zipkin-go/model"
	"github.com/openzipkin/zipkin-go/reporter"
	"github.com/pkg/errors"

	"github.com/openzipkin-contrib/zipkin-go-scope/encoding"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ReporterHandler hands every span of a payload to a zipkin-go reporter,
// letting its batching and transports take over delivery.
type ReporterHandler struct {
	reporter reporter.Reporter
	encoding encoding.Encoding
}

// NewReporterHandler returns a Handler decoding enc payloads and sending
// their spans to r. Closing r stays with the caller.
func NewReporterHandler(r reporter.Reporter, enc encoding.Encoding) (*ReporterHandler, error) {
	if _, err := encoding.Get(enc); err != nil {
		return nil, err
	}
	return &ReporterHandler{reporter: r, encoding: enc}, nil
}

// Send implements Handler
func (h *ReporterHandler) Send(payload []byte) error {
	spans, err := ToSpanModels(payload, h.encoding)
	if err != nil {
		return err
	}
	for _, s := range spans {
		h.reporter.Send(s)
	}
	return nil
}

// MaxPayloadBytes implements Handler. Reporters batch on their own so
// payloads are not bounded here.
func (h *ReporterHandler) MaxPayloadBytes() int { return 0 }

// ToSpanModels decodes an enc payload into zipkin-go span models.
func ToSpanModels(payload []byte, enc encoding.Encoding) ([]model.SpanModel, error) {
	v2, err := encoding.ConvertFrom(payload, enc, encoding.V2JSON)
	if err != nil {
		return nil, err
	}
	var spans []model.SpanModel
	if err := json.Unmarshal(v2, &spans); err != nil {
		return nil, errors.Wrap(err, "decoding span models")
	}
	return spans, nil
}
