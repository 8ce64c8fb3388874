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
	"strconv"

	"github.com/pkg/errors"

	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

type jsonV1Annotation struct {
	Timestamp int64         `json:"timestamp"`
	Value     string        `json:"value"`
	Endpoint  *jsonEndpoint `json:"endpoint,omitempty"`
}

// Value is a string for tags and the boolean true for address annotations.
type jsonV1BinaryAnnotation struct {
	Key      string        `json:"key"`
	Value    interface{}   `json:"value"`
	Endpoint *jsonEndpoint `json:"endpoint,omitempty"`
}

type jsonV1Span struct {
	TraceID           string                   `json:"traceId"`
	Name              string                   `json:"name"`
	ID                string                   `json:"id"`
	ParentID          string                   `json:"parentId,omitempty"`
	Timestamp         int64                    `json:"timestamp,omitempty"`
	Duration          int64                    `json:"duration,omitempty"`
	Debug             bool                     `json:"debug,omitempty"`
	Annotations       []jsonV1Annotation       `json:"annotations"`
	BinaryAnnotations []jsonV1BinaryAnnotation `json:"binaryAnnotations"`
}

type jsonV1Codec struct{}

func (jsonV1Codec) EncodeSpan(s models.Span) ([]byte, error) {
	v := toV1(s)
	j := jsonV1Span{
		TraceID:           v.TraceID,
		Name:              v.Name,
		ID:                v.ID,
		ParentID:          v.ParentID,
		Timestamp:         v.Timestamp,
		Duration:          v.Duration,
		Debug:             v.Debug,
		Annotations:       make([]jsonV1Annotation, 0, len(v.Annotations)),
		BinaryAnnotations: make([]jsonV1BinaryAnnotation, 0, len(v.BinaryAnnotations)),
	}
	for _, a := range v.Annotations {
		j.Annotations = append(j.Annotations, jsonV1Annotation{
			Timestamp: a.Timestamp,
			Value:     a.Value,
			Endpoint:  toJSONEndpoint(a.Endpoint),
		})
	}
	for _, b := range v.BinaryAnnotations {
		var value interface{} = b.Value
		if b.Address {
			value = true
		}
		j.BinaryAnnotations = append(j.BinaryAnnotations, jsonV1BinaryAnnotation{
			Key:      b.Key,
			Value:    value,
			Endpoint: toJSONEndpoint(b.Endpoint),
		})
	}
	out, err := json.Marshal(j)
	if err != nil {
		return nil, errors.Wrap(err, "encoding v1 json span")
	}
	return out, nil
}

func (jsonV1Codec) EncodeBatch(fragments [][]byte) []byte {
	return jsonBatch(fragments)
}

func (jsonV1Codec) Fits(count, size, maxSize int, fragment []byte) bool {
	return jsonFits(count, size, maxSize, fragment)
}

func (jsonV1Codec) Decode(data []byte) ([]models.Span, error) {
	var list []jsonV1Span
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &DecodeError{Encoding: V1JSON, Field: "spans", Err: err}
	}
	spans := make([]models.Span, 0, len(list))
	for i, j := range list {
		v, field, err := j.toV1()
		if err != nil {
			return nil, &DecodeError{Encoding: V1JSON, Field: fmt.Sprintf("[%d].%s", i, field), Err: err}
		}
		s, err := fromV1(v)
		if err != nil {
			return nil, &DecodeError{Encoding: V1JSON, Field: fmt.Sprintf("[%d]", i), Err: err}
		}
		spans = append(spans, s)
	}
	return spans, nil
}

func (j jsonV1Span) toV1() (v v1Span, field string, err error) {
	v = v1Span{
		TraceID:   j.TraceID,
		Name:      j.Name,
		ID:        j.ID,
		ParentID:  j.ParentID,
		Timestamp: j.Timestamp,
		Duration:  j.Duration,
		Debug:     j.Debug,
	}
	for _, a := range j.Annotations {
		e, err := fromJSONEndpoint(a.Endpoint)
		if err != nil {
			return v, "annotations.endpoint", err
		}
		v.Annotations = append(v.Annotations, v1Annotation{Timestamp: a.Timestamp, Value: a.Value, Endpoint: e})
	}
	for _, b := range j.BinaryAnnotations {
		e, err := fromJSONEndpoint(b.Endpoint)
		if err != nil {
			return v, "binaryAnnotations.endpoint", err
		}
		ba := v1BinaryAnnotation{Key: b.Key, Endpoint: e}
		switch value := b.Value.(type) {
		case string:
			ba.Value = value
		case bool:
			ba.Value = strconv.FormatBool(value)
			ba.Address = value
		case float64:
			ba.Value = strconv.FormatFloat(value, 'f', -1, 64)
		case nil:
		default:
			return v, "binaryAnnotations.value", fmt.Errorf("unsupported value %v for key %q", value, b.Key)
		}
		v.BinaryAnnotations = append(v.BinaryAnnotations, ba)
	}
	return v, "", nil
}
