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
	"context"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

// ReportMethod is the full name of the collector's span ingestion rpc.
const ReportMethod = "/zipkin.proto3.SpanService/Report"

// rawCodec passes already encoded proto3 ListOfSpans payloads through
// untouched. Responses are read into a *[]byte.
type rawCodec struct{}

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case *[]byte:
		return *b, nil
	}
	return nil, errors.Errorf("raw codec cannot marshal %T", v)
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	b, ok := v.(*[]byte)
	if !ok {
		return errors.Errorf("raw codec cannot unmarshal into %T", v)
	}
	*b = append((*b)[:0], data...)
	return nil
}

func (rawCodec) Name() string { return "zipkin-raw" }

// GRPCHandler reports V2_PROTO3 payloads to a collector's SpanService.
type GRPCHandler struct {
	conn            grpc.ClientConnInterface
	timeout         time.Duration
	maxPayloadBytes int
}

// GRPCOption sets a parameter for the GRPCHandler
type GRPCOption func(h *GRPCHandler)

// GRPCTimeout bounds each Report call.
func GRPCTimeout(d time.Duration) GRPCOption {
	return func(h *GRPCHandler) { h.timeout = d }
}

// GRPCMaxPayloadBytes limits the size of a single Report message.
func GRPCMaxPayloadBytes(n int) GRPCOption {
	return func(h *GRPCHandler) { h.maxPayloadBytes = n }
}

// NewGRPCHandler returns a Handler using conn. The caller owns conn.
// Scopes using it must encode with V2_PROTO3.
func NewGRPCHandler(conn grpc.ClientConnInterface, options ...GRPCOption) *GRPCHandler {
	h := &GRPCHandler{conn: conn, timeout: defaultHTTPTimeout}
	for _, option := range options {
		option(h)
	}
	return h
}

// Send implements Handler
func (h *GRPCHandler) Send(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var resp []byte
	if err := h.conn.Invoke(ctx, ReportMethod, payload, &resp, grpc.ForceCodec(rawCodec{})); err != nil {
		return errors.Wrap(err, "reporting spans over grpc")
	}
	return nil
}

// MaxPayloadBytes implements Handler
func (h *GRPCHandler) MaxPayloadBytes() int { return h.maxPayloadBytes }
