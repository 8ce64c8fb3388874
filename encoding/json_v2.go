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

package encoding

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

type jsonV2Annotation struct {
	Timestamp int64  `json:"timestamp"`
	Value     string `json:"value"`
}

type jsonV2Span struct {
	TraceID        string             `json:"traceId"`
	ParentID       string             `json:"parentId,omitempty"`
	ID             string             `json:"id"`
	Kind           string             `json:"kind,omitempty"`
	Name           string             `json:"name"`
	Timestamp      int64              `json:"timestamp,omitempty"`
	Duration       int64              `json:"duration,omitempty"`
	Debug          bool               `json:"debug,omitempty"`
	Shared         bool               `json:"shared,omitempty"`
	LocalEndpoint  *jsonEndpoint      `json:"localEndpoint,omitempty"`
	RemoteEndpoint *jsonEndpoint      `json:"remoteEndpoint,omitempty"`
	Annotations    []jsonV2Annotation `json:"annotations,omitempty"`
	Tags           map[string]string  `json:"tags,omitempty"`
}

type jsonV2Codec struct{}

func (jsonV2Codec) EncodeSpan(s models.Span) ([]byte, error) {
	p := s.Params()
	j := jsonV2Span{
		TraceID:        p.TraceID,
		ParentID:       p.ParentID,
		ID:             p.ID,
		Name:           p.Name,
		Timestamp:      p.Timestamp,
		Duration:       p.Duration,
		Debug:          p.Debug,
		Shared:         p.Shared,
		LocalEndpoint:  toJSONEndpoint(p.LocalEndpoint),
		RemoteEndpoint: toJSONEndpoint(p.RemoteEndpoint),
		Tags:           p.Tags,
	}
	if kind, ok := s.Kind(); ok {
		j.Kind = kind.String()
	}
	for _, a := range p.Annotations {
		j.Annotations = append(j.Annotations, jsonV2Annotation(a))
	}
	out, err := json.Marshal(j)
	if err != nil {
		return nil, errors.Wrap(err, "encoding v2 json span")
	}
	return out, nil
}

func (jsonV2Codec) EncodeBatch(fragments [][]byte) []byte {
	return jsonBatch(fragments)
}

func (jsonV2Codec) Fits(count, size, maxSize int, fragment []byte) bool {
	return jsonFits(count, size, maxSize, fragment)
}

func (jsonV2Codec) Decode(data []byte) ([]models.Span, error) {
	var list []jsonV2Span
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &DecodeError{Encoding: V2JSON, Field: "spans", Err: err}
	}
	spans := make([]models.Span, 0, len(list))
	for i, j := range list {
		s, field, err := j.toSpan()
		if err != nil {
			return nil, &DecodeError{Encoding: V2JSON, Field: fmt.Sprintf("[%d].%s", i, field), Err: err}
		}
		spans = append(spans, s)
	}
	return spans, nil
}

func (j jsonV2Span) toSpan() (models.Span, string, error) {
	p := models.SpanParams{
		TraceID:   j.TraceID,
		ID:        j.ID,
		ParentID:  j.ParentID,
		Name:      j.Name,
		Timestamp: j.Timestamp,
		Duration:  j.Duration,
		Debug:     j.Debug,
		Shared:    j.Shared,
		Tags:      j.Tags,
	}
	if j.Kind != "" {
		kind, err := models.ParseKind(j.Kind)
		if err != nil {
			return models.Span{}, "kind", err
		}
		p.Kind = kind
	}
	var err error
	if p.LocalEndpoint, err = fromJSONEndpoint(j.LocalEndpoint); err != nil {
		return models.Span{}, "localEndpoint", err
	}
	if p.RemoteEndpoint, err = fromJSONEndpoint(j.RemoteEndpoint); err != nil {
		return models.Span{}, "remoteEndpoint", err
	}
	for _, a := range j.Annotations {
		p.Annotations = append(p.Annotations, models.Annotation(a))
	}
	s, err := models.NewSpan(p)
	if err != nil {
		return models.Span{}, "span", err
	}
	return s, "", nil
}
