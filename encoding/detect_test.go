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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

const (
	v2Literal = `[{"traceId":"6b221d5bc9e6496c","name":"get-traces","id":"6b221d5bc9e6496c","kind":"SERVER",
		"timestamp":1472470996199000,"duration":207000,"localEndpoint":{"serviceName":"frontend"}},
		{"traceId":"6b221d5bc9e6496c","parentId":"6b221d5bc9e6496c","id":"5b4185666d50f68b","name":"get",
		"timestamp":1472470996238000,"duration":10000}]`
	v1Literal = `[{"traceId":"6b221d5bc9e6496c","name":"get-traces","id":"6b221d5bc9e6496c",
		"annotations":[{"timestamp":1472470996199000,"value":"sr","endpoint":{"serviceName":"frontend"}}]},
		{"traceId":"6b221d5bc9e6496c","name":"get","id":"5b4185666d50f68b","parentId":"6b221d5bc9e6496c",
		"binaryAnnotations":[{"key":"lc","value":"","endpoint":{"serviceName":"frontend"}}]}]`
)

func TestDetectJSON(t *testing.T) {
	for _, tc := range []struct {
		name    string
		payload string
		want    Encoding
	}{
		{"v2 literal", v2Literal, V2JSON},
		{"v1 literal", v1Literal, V1JSON},
		{"empty list", `[]`, V2JSON},
		{"no distinguishing keys", `[{"traceId":"6b221d5bc9e6496c","id":"6b221d5bc9e6496c","name":"x"}]`, V2JSON},
		{"annotation endpoint", `[{"annotations":[{"timestamp":1,"value":"foo","endpoint":{}}]}]`, V1JSON},
		{"first identifiable element wins", `[{"name":"a"},{"binaryAnnotations":[]},{"kind":"CLIENT"}]`, V1JSON},
	} {
		t.Run(tc.name, func(t *testing.T) {
			enc, err := Detect([]byte(tc.payload))
			require.NoError(t, err)
			assert.Equal(t, tc.want, enc)
		})
	}
}

func TestDetectBinary(t *testing.T) {
	spans := []models.Span{clientSpan(t), localSpan(t)}

	thriftList, err := EncodeSpans(V1Thrift, spans)
	require.NoError(t, err)
	enc, err := Detect(thriftList)
	require.NoError(t, err)
	assert.Equal(t, V1Thrift, enc)

	thriftSpan, err := thriftCodec{}.EncodeSpan(spans[0])
	require.NoError(t, err)
	enc, err = Detect(thriftSpan)
	require.NoError(t, err)
	assert.Equal(t, V1Thrift, enc)

	protoList, err := EncodeSpans(V2Proto3, spans)
	require.NoError(t, err)
	enc, err = Detect(protoList)
	require.NoError(t, err)
	assert.Equal(t, V2Proto3, enc)

	enc, err = Detect([]byte{10, 0})
	require.NoError(t, err)
	assert.Equal(t, V1Thrift, enc)
}

func TestDetectRejects(t *testing.T) {
	for _, payload := range [][]byte{
		nil,
		[]byte("["),
		[]byte(`{"traceId":"6b221d5bc9e6496c"}`),
		[]byte("[\xff\xfe]"),
		[]byte("[not json"),
		[]byte("hello world"),
	} {
		_, err := Detect(payload)
		var formatErr *FormatError
		assert.True(t, errors.As(err, &formatErr), "%q: %v", payload, err)
	}
}

func TestConvertSameEncodingReturnsInput(t *testing.T) {
	in := []byte(v2Literal)
	out, err := Convert(in, V2JSON)
	require.NoError(t, err)
	assert.Same(t, &in[0], &out[0])

	out, err = ConvertFrom(in, V1Thrift, V1Thrift)
	require.NoError(t, err)
	assert.Same(t, &in[0], &out[0])
}

func TestConvertAcrossEncodings(t *testing.T) {
	want, err := DecodeSpans(V2JSON, []byte(v2Literal))
	require.NoError(t, err)

	payload := []byte(v2Literal)
	for _, to := range []Encoding{V2Proto3, V1Thrift, V1JSON, V2JSON} {
		converted, err := Convert(payload, to)
		require.NoError(t, err, to.String())

		enc, err := Detect(converted)
		require.NoError(t, err)
		assert.Equal(t, to, enc)
		payload = converted
	}

	got, err := DecodeSpans(V2JSON, payload)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID(), got[i].ID())
		assert.Equal(t, want[i].Name(), got[i].Name())
		assert.Equal(t, want[i].Timestamp(), got[i].Timestamp())
		assert.Equal(t, want[i].Duration(), got[i].Duration())
	}
	kind, ok := got[0].Kind()
	assert.True(t, ok)
	assert.Equal(t, models.Server, kind)
}

func TestConvertPropagatesErrors(t *testing.T) {
	_, err := Convert([]byte("x"), V2JSON)
	var formatErr *FormatError
	assert.True(t, errors.As(err, &formatErr))

	_, err = ConvertFrom([]byte("[{"), V2JSON, V1JSON)
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}
