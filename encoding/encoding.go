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

// Package encoding converts spans to and from the four Zipkin wire formats
// and detects the format of an encoded payload.
package encoding

import (
	"strings"

	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

// Encoding is one of the supported span wire formats.
type Encoding int

// Supported encodings
const (
	V1Thrift Encoding = iota + 1
	V1JSON
	V2JSON
	V2Proto3
)

var encodingNames = map[Encoding]string{
	V1Thrift: "V1_THRIFT",
	V1JSON:   "V1_JSON",
	V2JSON:   "V2_JSON",
	V2Proto3: "V2_PROTO3",
}

func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseEncoding maps a name such as "v2_json" to its Encoding.
func ParseEncoding(s string) (Encoding, error) {
	upper := strings.ToUpper(s)
	for e, name := range encodingNames {
		if name == upper {
			return e, nil
		}
	}
	return 0, models.Configurationf("unknown encoding %q", s)
}

// ContentType returns the MIME type collectors expect for the encoding.
func (e Encoding) ContentType() string {
	switch e {
	case V1Thrift:
		return "application/x-thrift"
	case V2Proto3:
		return "application/x-protobuf"
	default:
		return "application/json"
	}
}

// Legacy reports whether the encoding belongs to the v1 API.
func (e Encoding) Legacy() bool {
	return e == V1Thrift || e == V1JSON
}

// Codec encodes and decodes spans for a single encoding. Encoding is split
// in two steps so that callers can size payloads span by span: EncodeSpan
// produces a fragment and EncodeBatch wraps fragments into a payload.
type Codec interface {
	// Decode returns the spans of a payload in their wire order.
	Decode(data []byte) ([]models.Span, error)
	// EncodeSpan encodes a single span into a batch fragment.
	EncodeSpan(span models.Span) ([]byte, error)
	// EncodeBatch builds a payload out of fragments, keeping their order.
	EncodeBatch(fragments [][]byte) []byte
	// Fits reports whether a payload holding count fragments of size total
	// bytes still fits maxSize once fragment is added.
	Fits(count, size, maxSize int, fragment []byte) bool
}

var codecs = map[Encoding]Codec{
	V1Thrift: thriftCodec{},
	V1JSON:   jsonV1Codec{},
	V2JSON:   jsonV2Codec{},
	V2Proto3: protoCodec{},
}

// Get returns the codec for enc.
func Get(enc Encoding) (Codec, error) {
	c, ok := codecs[enc]
	if !ok {
		return nil, models.Configurationf("unknown encoding %d", int(enc))
	}
	return c, nil
}

// EncodeSpans encodes spans as a single payload.
func EncodeSpans(enc Encoding, spans []models.Span) ([]byte, error) {
	c, err := Get(enc)
	if err != nil {
		return nil, err
	}
	fragments := make([][]byte, 0, len(spans))
	for _, s := range spans {
		f, err := c.EncodeSpan(s)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	return c.EncodeBatch(fragments), nil
}

// DecodeSpans decodes a payload of a known encoding.
func DecodeSpans(enc Encoding, data []byte) ([]models.Span, error) {
	c, err := Get(enc)
	if err != nil {
		return nil, err
	}
	return c.Decode(data)
}
