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
	"encoding/hex"
	"fmt"
	"net"

	"github.com/openzipkin/zipkin-go/proto/zipkin_proto3"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"

	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

var (
	kindToProto = map[models.Kind]zipkin_proto3.Span_Kind{
		models.Client:   zipkin_proto3.Span_CLIENT,
		models.Server:   zipkin_proto3.Span_SERVER,
		models.Producer: zipkin_proto3.Span_PRODUCER,
		models.Consumer: zipkin_proto3.Span_CONSUMER,
	}
	kindFromProto = map[zipkin_proto3.Span_Kind]models.Kind{
		zipkin_proto3.Span_CLIENT:   models.Client,
		zipkin_proto3.Span_SERVER:   models.Server,
		zipkin_proto3.Span_PRODUCER: models.Producer,
		zipkin_proto3.Span_CONSUMER: models.Consumer,
	}
)

type protoCodec struct{}

// EncodeSpan returns a ListOfSpans holding only s. Concatenated fragments
// decode as a single list, so batching needs no extra framing.
func (protoCodec) EncodeSpan(s models.Span) ([]byte, error) {
	ps, err := toProtoSpan(s)
	if err != nil {
		return nil, err
	}
	out, err := proto.Marshal(&zipkin_proto3.ListOfSpans{Spans: []*zipkin_proto3.Span{ps}})
	if err != nil {
		return nil, errors.Wrap(err, "encoding proto3 span")
	}
	return out, nil
}

func (protoCodec) EncodeBatch(fragments [][]byte) []byte {
	var size int
	for _, f := range fragments {
		size += len(f)
	}
	out := make([]byte, 0, size)
	for _, f := range fragments {
		out = append(out, f...)
	}
	return out
}

func (protoCodec) Fits(_, size, maxSize int, fragment []byte) bool {
	return size+len(fragment) <= maxSize
}

func (protoCodec) Decode(data []byte) ([]models.Span, error) {
	var list zipkin_proto3.ListOfSpans
	if err := proto.Unmarshal(data, &list); err != nil {
		return nil, &DecodeError{Encoding: V2Proto3, Field: "spans", Err: err}
	}
	spans := make([]models.Span, 0, len(list.Spans))
	for i, ps := range list.Spans {
		s, field, err := fromProtoSpan(ps)
		if err != nil {
			return nil, &DecodeError{Encoding: V2Proto3, Field: fmt.Sprintf("[%d].%s", i, field), Err: err}
		}
		spans = append(spans, s)
	}
	return spans, nil
}

func toProtoSpan(s models.Span) (*zipkin_proto3.Span, error) {
	p := s.Params()
	ps := &zipkin_proto3.Span{
		Name:           p.Name,
		Timestamp:      uint64(p.Timestamp),
		Duration:       uint64(p.Duration),
		LocalEndpoint:  toProtoEndpoint(p.LocalEndpoint),
		RemoteEndpoint: toProtoEndpoint(p.RemoteEndpoint),
		Tags:           p.Tags,
		Debug:          p.Debug,
		Shared:         p.Shared,
	}
	var err error
	if ps.TraceId, err = hex.DecodeString(p.TraceID); err != nil {
		return nil, errors.Wrap(err, "trace id")
	}
	if ps.Id, err = hex.DecodeString(p.ID); err != nil {
		return nil, errors.Wrap(err, "span id")
	}
	if p.ParentID != "" {
		if ps.ParentId, err = hex.DecodeString(p.ParentID); err != nil {
			return nil, errors.Wrap(err, "parent id")
		}
	}
	if kind, ok := s.Kind(); ok {
		ps.Kind = kindToProto[kind]
	}
	for _, a := range p.Annotations {
		ps.Annotations = append(ps.Annotations, &zipkin_proto3.Annotation{
			Timestamp: uint64(a.Timestamp),
			Value:     a.Value,
		})
	}
	return ps, nil
}

func toProtoEndpoint(e *models.Endpoint) *zipkin_proto3.Endpoint {
	if e == nil {
		return nil
	}
	pe := &zipkin_proto3.Endpoint{ServiceName: e.ServiceName, Port: int32(e.Port)}
	if ip := e.IPv4.To4(); ip != nil {
		pe.Ipv4 = []byte(ip)
	}
	if len(e.IPv6) == net.IPv6len {
		pe.Ipv6 = []byte(e.IPv6)
	}
	return pe
}

func fromProtoSpan(ps *zipkin_proto3.Span) (models.Span, string, error) {
	p := models.SpanParams{
		TraceID:        hex.EncodeToString(ps.TraceId),
		ID:             hex.EncodeToString(ps.Id),
		ParentID:       hex.EncodeToString(ps.ParentId),
		Name:           ps.Name,
		Timestamp:      int64(ps.Timestamp),
		Duration:       int64(ps.Duration),
		LocalEndpoint:  fromProtoEndpoint(ps.LocalEndpoint),
		RemoteEndpoint: fromProtoEndpoint(ps.RemoteEndpoint),
		Tags:           ps.Tags,
		Debug:          ps.Debug,
		Shared:         ps.Shared,
	}
	if ps.Kind != zipkin_proto3.Span_SPAN_KIND_UNSPECIFIED {
		kind, ok := kindFromProto[ps.Kind]
		if !ok {
			return models.Span{}, "kind", fmt.Errorf("unknown span kind %d", ps.Kind)
		}
		p.Kind = kind
	}
	for _, a := range ps.Annotations {
		p.Annotations = append(p.Annotations, models.Annotation{Timestamp: int64(a.Timestamp), Value: a.Value})
	}
	s, err := models.NewSpan(p)
	if err != nil {
		return models.Span{}, "span", err
	}
	return s, "", nil
}

func fromProtoEndpoint(pe *zipkin_proto3.Endpoint) *models.Endpoint {
	if pe == nil {
		return nil
	}
	e := &models.Endpoint{ServiceName: pe.ServiceName, Port: uint16(pe.Port)}
	if len(pe.Ipv4) == net.IPv4len {
		e.IPv4 = net.IP(append([]byte(nil), pe.Ipv4...))
	}
	if len(pe.Ipv6) == net.IPv6len {
		e.IPv6 = net.IP(append([]byte(nil), pe.Ipv6...))
	}
	return e
}
