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
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"strconv"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/pkg/errors"

	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

// Binary annotation types of zipkinCore.thrift
const (
	annotationTypeBool   int32 = 0
	annotationTypeBytes  int32 = 1
	annotationTypeI16    int32 = 2
	annotationTypeI32    int32 = 3
	annotationTypeI64    int32 = 4
	annotationTypeDouble int32 = 5
	annotationTypeString int32 = 6
)

// size of a list header: element type (1 byte) and element count (4 bytes)
const thriftListHeaderSize = 5

type thriftCodec struct{}

func newThriftProtocol(buf *thrift.TMemoryBuffer) thrift.TProtocol {
	return thrift.NewTBinaryProtocolConf(buf, &thrift.TConfiguration{})
}

func (thriftCodec) EncodeSpan(s models.Span) ([]byte, error) {
	buf := thrift.NewTMemoryBuffer()
	w := &thriftWriter{ctx: context.Background(), p: newThriftProtocol(buf)}
	w.span(toV1(s))
	if w.err != nil {
		return nil, errors.Wrap(w.err, "encoding thrift span")
	}
	return buf.Bytes(), nil
}

func (thriftCodec) EncodeBatch(fragments [][]byte) []byte {
	ctx := context.Background()
	buf := thrift.NewTMemoryBuffer()
	p := newThriftProtocol(buf)
	// writes to a memory buffer cannot fail
	_ = p.WriteListBegin(ctx, thrift.STRUCT, len(fragments))
	_ = p.Flush(ctx)
	for _, f := range fragments {
		_, _ = buf.Write(f)
	}
	return buf.Bytes()
}

func (thriftCodec) Fits(_, size, maxSize int, fragment []byte) bool {
	return thriftListHeaderSize+size+len(fragment) <= maxSize
}

// Decode accepts a list of spans or a single span struct.
func (thriftCodec) Decode(data []byte) ([]models.Span, error) {
	buf := thrift.NewTMemoryBuffer()
	_, _ = buf.Write(data)
	r := &thriftReader{ctx: context.Background(), p: newThriftProtocol(buf)}

	size := 1
	if len(data) > 0 && thrift.TType(data[0]) == thrift.STRUCT {
		_, n, err := r.p.ReadListBegin(r.ctx)
		if err != nil {
			return nil, &DecodeError{Encoding: V1Thrift, Field: "list header", Err: err}
		}
		size = n
	}

	spans := make([]models.Span, 0, min(size, 1024))
	for i := 0; i < size; i++ {
		v := r.span()
		if r.err != nil {
			return nil, &DecodeError{Encoding: V1Thrift, Field: r.field, Err: r.err}
		}
		s, err := fromV1(v)
		if err != nil {
			return nil, &DecodeError{Encoding: V1Thrift, Field: "span", Err: err}
		}
		spans = append(spans, s)
	}
	return spans, nil
}

// thriftWriter writes the fixed zipkinCore shapes, keeping the first error.
type thriftWriter struct {
	ctx context.Context
	p   thrift.TProtocol
	err error
}

func (w *thriftWriter) check(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *thriftWriter) field(name string, typ thrift.TType, id int16, value func()) {
	w.check(w.p.WriteFieldBegin(w.ctx, name, typ, id))
	value()
	w.check(w.p.WriteFieldEnd(w.ctx))
}

func (w *thriftWriter) i64(name string, id int16, v int64) {
	w.field(name, thrift.I64, id, func() { w.check(w.p.WriteI64(w.ctx, v)) })
}

func (w *thriftWriter) str(name string, id int16, v string) {
	w.field(name, thrift.STRING, id, func() { w.check(w.p.WriteString(w.ctx, v)) })
}

func (w *thriftWriter) list(name string, id int16, size int, elem func(i int)) {
	w.field(name, thrift.LIST, id, func() {
		w.check(w.p.WriteListBegin(w.ctx, thrift.STRUCT, size))
		for i := 0; i < size; i++ {
			elem(i)
		}
		w.check(w.p.WriteListEnd(w.ctx))
	})
}

func (w *thriftWriter) end() {
	w.check(w.p.WriteFieldStop(w.ctx))
	w.check(w.p.WriteStructEnd(w.ctx))
}

func (w *thriftWriter) span(v v1Span) {
	high, low := splitTraceID(v.TraceID)

	w.check(w.p.WriteStructBegin(w.ctx, "Span"))
	w.i64("trace_id", 1, int64(low))
	w.str("name", 3, v.Name)
	w.i64("id", 4, int64(parseID(v.ID)))
	if v.ParentID != "" {
		w.i64("parent_id", 5, int64(parseID(v.ParentID)))
	}
	w.list("annotations", 6, len(v.Annotations), func(i int) {
		w.annotation(v.Annotations[i])
	})
	w.list("binary_annotations", 8, len(v.BinaryAnnotations), func(i int) {
		w.binaryAnnotation(v.BinaryAnnotations[i])
	})
	if v.Debug {
		w.field("debug", thrift.BOOL, 9, func() { w.check(w.p.WriteBool(w.ctx, true)) })
	}
	if v.Timestamp > 0 {
		w.i64("timestamp", 10, v.Timestamp)
	}
	if v.Duration > 0 {
		w.i64("duration", 11, v.Duration)
	}
	if high != 0 {
		w.i64("trace_id_high", 12, int64(high))
	}
	w.end()
}

func (w *thriftWriter) annotation(a v1Annotation) {
	w.check(w.p.WriteStructBegin(w.ctx, "Annotation"))
	w.i64("timestamp", 1, a.Timestamp)
	w.str("value", 2, a.Value)
	if a.Endpoint != nil {
		w.field("host", thrift.STRUCT, 3, func() { w.endpoint(*a.Endpoint) })
	}
	w.end()
}

func (w *thriftWriter) binaryAnnotation(b v1BinaryAnnotation) {
	value, typ := []byte(b.Value), annotationTypeString
	if b.Address {
		value, typ = []byte{1}, annotationTypeBool
	}
	w.check(w.p.WriteStructBegin(w.ctx, "BinaryAnnotation"))
	w.str("key", 1, b.Key)
	w.field("value", thrift.STRING, 2, func() { w.check(w.p.WriteBinary(w.ctx, value)) })
	w.field("annotation_type", thrift.I32, 3, func() { w.check(w.p.WriteI32(w.ctx, typ)) })
	if b.Endpoint != nil {
		w.field("host", thrift.STRUCT, 4, func() { w.endpoint(*b.Endpoint) })
	}
	w.end()
}

func (w *thriftWriter) endpoint(e models.Endpoint) {
	var ipv4 int32
	if ip := e.IPv4.To4(); ip != nil {
		ipv4 = int32(binary.BigEndian.Uint32(ip))
	}
	w.check(w.p.WriteStructBegin(w.ctx, "Endpoint"))
	w.field("ipv4", thrift.I32, 1, func() { w.check(w.p.WriteI32(w.ctx, ipv4)) })
	w.field("port", thrift.I16, 2, func() { w.check(w.p.WriteI16(w.ctx, int16(e.Port))) })
	w.str("service_name", 3, e.ServiceName)
	if ip := e.IPv6.To16(); ip != nil {
		w.field("ipv6", thrift.STRING, 4, func() { w.check(w.p.WriteBinary(w.ctx, ip)) })
	}
	w.end()
}

// thriftReader reads the fixed zipkinCore shapes. After the first error
// every read is a no-op; field names the element being read at that time.
type thriftReader struct {
	ctx   context.Context
	p     thrift.TProtocol
	err   error
	field string
}

func (r *thriftReader) fail(field string, err error) bool {
	if err != nil && r.err == nil {
		r.err, r.field = err, field
	}
	return r.err != nil
}

// fields calls read for every field of the current struct until STOP.
func (r *thriftReader) fields(name string, read func(id int16, typ thrift.TType) bool) {
	if _, err := r.p.ReadStructBegin(r.ctx); r.fail(name, err) {
		return
	}
	for {
		_, typ, id, err := r.p.ReadFieldBegin(r.ctx)
		if r.fail(name, err) {
			return
		}
		if typ == thrift.STOP {
			break
		}
		if !read(id, typ) {
			r.fail(name, r.p.Skip(r.ctx, typ))
		}
		if r.err != nil || r.fail(name, r.p.ReadFieldEnd(r.ctx)) {
			return
		}
	}
	r.fail(name, r.p.ReadStructEnd(r.ctx))
}

func (r *thriftReader) i64(field string) int64 {
	v, err := r.p.ReadI64(r.ctx)
	r.fail(field, err)
	return v
}

func (r *thriftReader) str(field string) string {
	v, err := r.p.ReadString(r.ctx)
	r.fail(field, err)
	return v
}

func (r *thriftReader) list(field string, elem func()) {
	_, size, err := r.p.ReadListBegin(r.ctx)
	if r.fail(field, err) {
		return
	}
	for i := 0; i < size && r.err == nil; i++ {
		elem()
	}
	if r.err == nil {
		r.fail(field, r.p.ReadListEnd(r.ctx))
	}
}

func (r *thriftReader) span() (v v1Span) {
	var high, low uint64
	r.fields("span", func(id int16, typ thrift.TType) bool {
		switch {
		case id == 1 && typ == thrift.I64:
			low = uint64(r.i64("trace_id"))
		case id == 3 && typ == thrift.STRING:
			v.Name = r.str("name")
		case id == 4 && typ == thrift.I64:
			v.ID = formatID(uint64(r.i64("id")))
		case id == 5 && typ == thrift.I64:
			if parent := uint64(r.i64("parent_id")); parent != 0 {
				v.ParentID = formatID(parent)
			}
		case id == 6 && typ == thrift.LIST:
			r.list("annotations", func() {
				v.Annotations = append(v.Annotations, r.annotation())
			})
		case id == 8 && typ == thrift.LIST:
			r.list("binary_annotations", func() {
				v.BinaryAnnotations = append(v.BinaryAnnotations, r.binaryAnnotation())
			})
		case id == 9 && typ == thrift.BOOL:
			debug, err := r.p.ReadBool(r.ctx)
			r.fail("debug", err)
			v.Debug = debug
		case id == 10 && typ == thrift.I64:
			v.Timestamp = r.i64("timestamp")
		case id == 11 && typ == thrift.I64:
			v.Duration = r.i64("duration")
		case id == 12 && typ == thrift.I64:
			high = uint64(r.i64("trace_id_high"))
		default:
			return false
		}
		return true
	})
	v.TraceID = formatTraceID(high, low)
	return v
}

func (r *thriftReader) annotation() (a v1Annotation) {
	r.fields("annotations", func(id int16, typ thrift.TType) bool {
		switch {
		case id == 1 && typ == thrift.I64:
			a.Timestamp = r.i64("annotations.timestamp")
		case id == 2 && typ == thrift.STRING:
			a.Value = r.str("annotations.value")
		case id == 3 && typ == thrift.STRUCT:
			e := r.endpoint("annotations.host")
			a.Endpoint = &e
		default:
			return false
		}
		return true
	})
	return a
}

func (r *thriftReader) binaryAnnotation() (b v1BinaryAnnotation) {
	var (
		raw []byte
		typ = annotationTypeString
	)
	r.fields("binary_annotations", func(id int16, t thrift.TType) bool {
		switch {
		case id == 1 && t == thrift.STRING:
			b.Key = r.str("binary_annotations.key")
		case id == 2 && t == thrift.STRING:
			v, err := r.p.ReadBinary(r.ctx)
			r.fail("binary_annotations.value", err)
			raw = v
		case id == 3 && t == thrift.I32:
			v, err := r.p.ReadI32(r.ctx)
			r.fail("binary_annotations.annotation_type", err)
			typ = v
		case id == 4 && t == thrift.STRUCT:
			e := r.endpoint("binary_annotations.host")
			b.Endpoint = &e
		default:
			return false
		}
		return true
	})
	if r.err != nil {
		return b
	}
	value, err := binaryAnnotationValue(typ, raw)
	if r.fail("binary_annotations.value", err) {
		return b
	}
	b.Value = value
	b.Address = typ == annotationTypeBool && value == tagTrueValue
	return b
}

func (r *thriftReader) endpoint(field string) (e models.Endpoint) {
	r.fields(field, func(id int16, typ thrift.TType) bool {
		switch {
		case id == 1 && typ == thrift.I32:
			v, err := r.p.ReadI32(r.ctx)
			r.fail(field+".ipv4", err)
			if v != 0 {
				e.IPv4 = make(net.IP, net.IPv4len)
				binary.BigEndian.PutUint32(e.IPv4, uint32(v))
			}
		case id == 2 && typ == thrift.I16:
			v, err := r.p.ReadI16(r.ctx)
			r.fail(field+".port", err)
			e.Port = uint16(v)
		case id == 3 && typ == thrift.STRING:
			e.ServiceName = r.str(field + ".service_name")
		case id == 4 && typ == thrift.STRING:
			v, err := r.p.ReadBinary(r.ctx)
			r.fail(field+".ipv6", err)
			if len(v) == net.IPv6len {
				e.IPv6 = net.IP(v)
			}
		default:
			return false
		}
		return true
	})
	return e
}

// binaryAnnotationValue renders a typed binary annotation value as a tag
// string.
func binaryAnnotationValue(typ int32, raw []byte) (string, error) {
	wantLen := map[int32]int{
		annotationTypeI16:    2,
		annotationTypeI32:    4,
		annotationTypeI64:    8,
		annotationTypeDouble: 8,
	}
	if n, ok := wantLen[typ]; ok && len(raw) != n {
		return "", fmt.Errorf("annotation type %d needs %d bytes, have %d", typ, n, len(raw))
	}
	switch typ {
	case annotationTypeBool:
		if len(raw) > 0 && raw[0] != 0 {
			return tagTrueValue, nil
		}
		return tagFalseValue, nil
	case annotationTypeI16:
		return strconv.FormatInt(int64(int16(binary.BigEndian.Uint16(raw))), 10), nil
	case annotationTypeI32:
		return strconv.FormatInt(int64(int32(binary.BigEndian.Uint32(raw))), 10), nil
	case annotationTypeI64:
		return strconv.FormatInt(int64(binary.BigEndian.Uint64(raw)), 10), nil
	case annotationTypeDouble:
		return strconv.FormatFloat(math.Float64frombits(binary.BigEndian.Uint64(raw)), 'g', -1, 64), nil
	case annotationTypeBytes, annotationTypeString:
		return string(raw), nil
	default:
		return "", fmt.Errorf("unknown annotation type %d", typ)
	}
}

// splitTraceID returns the high and low 64 bits of a validated trace id.
func splitTraceID(traceID string) (high, low uint64) {
	if len(traceID) == 32 {
		return parseID(traceID[:16]), parseID(traceID[16:])
	}
	return 0, parseID(traceID)
}

func parseID(id string) uint64 {
	v, _ := strconv.ParseUint(id, 16, 64)
	return v
}

func formatID(id uint64) string {
	return fmt.Sprintf("%016x", id)
}

func formatTraceID(high, low uint64) string {
	if high == 0 {
		return formatID(low)
	}
	return formatID(high) + formatID(low)
}
