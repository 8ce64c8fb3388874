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

package zipkintracer

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/openzipkin-contrib/zipkin-go-scope/encoding"
)

// flush drains the buffer and sends it in as many payloads as the
// transport limits require. A span that fails to encode is left out and
// its error returned; send errors are logged.
func (s *Scope) flush() error {
	t := s.tracer
	spans := t.DrainSpans()
	if len(spans) == 0 {
		return nil
	}

	codec, err := encoding.Get(s.opts.encoding)
	if err != nil {
		return err
	}

	var errs error
	fragments := make([][]byte, 0, len(spans))
	for _, span := range spans {
		f, err := codec.EncodeSpan(span)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "span %s", span.ID()))
			continue
		}
		fragments = append(fragments, f)
	}

	handler := s.opts.transport
	for _, payload := range chunk(codec, fragments, handler.MaxPayloadBytes(), s.opts.maxSpanBatchSize) {
		if err := handler.Send(payload); err != nil {
			t.sendErrors.LogError(err, "msg", "failed to send spans", "bytes", len(payload))
			continue
		}
		t.sendErrors.Fixed("msg", "sending spans recovered")
	}
	return errs
}

// chunk groups fragments into payloads holding at most maxSpans fragments
// and, when maxBytes is positive, at most maxBytes bytes. A fragment that
// is larger than maxBytes on its own is sent alone.
func chunk(codec encoding.Codec, fragments [][]byte, maxBytes, maxSpans int) [][]byte {
	var (
		payloads [][]byte
		batch    [][]byte
		size     int
	)
	for _, f := range fragments {
		full := len(batch) >= maxSpans ||
			(maxBytes > 0 && !codec.Fits(len(batch), size, maxBytes, f))
		if len(batch) > 0 && full {
			payloads = append(payloads, codec.EncodeBatch(batch))
			batch, size = nil, 0
		}
		batch = append(batch, f)
		size += len(f)
	}
	if len(batch) > 0 {
		payloads = append(payloads, codec.EncodeBatch(batch))
	}
	return payloads
}
