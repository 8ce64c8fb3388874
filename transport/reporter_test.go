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
	"testing"
	"time"

	"github.com/openzipkin/zipkin-go/model"
	"github.com/openzipkin/zipkin-go/reporter/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openzipkin-contrib/zipkin-go-scope/encoding"
)

func TestReporterHandlerForwardsEveryEncoding(t *testing.T) {
	for _, enc := range []encoding.Encoding{
		encoding.V1Thrift, encoding.V1JSON, encoding.V2JSON, encoding.V2Proto3,
	} {
		t.Run(enc.String(), func(t *testing.T) {
			rec := recorder.NewReporter()
			defer rec.Close()

			h, err := NewReporterHandler(rec, enc)
			require.NoError(t, err)
			assert.Equal(t, 0, h.MaxPayloadBytes())
			require.NoError(t, h.Send(testPayload(t, enc)))

			spans := rec.Flush()
			require.Len(t, spans, 1)
			s := spans[0]
			assert.Equal(t, "463ac35c9f6413ad48485a3953bb6124", s.TraceID.String())
			assert.Equal(t, "a2fb4a1d1a96d312", s.ID.String())
			require.NotNil(t, s.ParentID)
			assert.Equal(t, "0020000000000001", s.ParentID.String())
			assert.Equal(t, model.Client, s.Kind)
			assert.Equal(t, "get /users", s.Name)
			assert.Equal(t, 207*time.Millisecond, s.Duration)
			assert.Equal(t, int64(1472470996199000), s.Timestamp.UnixNano()/1e3)
			require.NotNil(t, s.LocalEndpoint)
			assert.Equal(t, "frontend", s.LocalEndpoint.ServiceName)
			assert.Equal(t, uint16(8080), s.LocalEndpoint.Port)
			assert.Equal(t, "/users", s.Tags["http.path"])
		})
	}
}

func TestReporterHandlerRejectsBadPayloads(t *testing.T) {
	rec := recorder.NewReporter()
	defer rec.Close()

	h, err := NewReporterHandler(rec, encoding.V2JSON)
	require.NoError(t, err)
	assert.Error(t, h.Send([]byte("{not json")))
	assert.Empty(t, rec.Flush())

	_, err = NewReporterHandler(rec, encoding.Encoding(0))
	assert.Error(t, err)
}
