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
	"sort"

	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

// Core annotations of the v1 model. They carry the span kind and timing
// that v2 spans express with dedicated fields.
const (
	clientSend    = "cs"
	clientRecv    = "cr"
	serverRecv    = "sr"
	serverSend    = "ss"
	messageSend   = "ms"
	messageRecv   = "mr"
	serverAddr    = "sa"
	clientAddr    = "ca"
	messageAddr   = "ma"
	tagTrueValue  = "true"
	tagFalseValue = "false"
)

var coreAnnotations = map[string]bool{
	clientSend:  true,
	clientRecv:  true,
	serverRecv:  true,
	serverSend:  true,
	messageSend: true,
	messageRecv: true,
}

var addressAnnotations = map[string]bool{
	serverAddr:  true,
	clientAddr:  true,
	messageAddr: true,
}

type v1Annotation struct {
	Timestamp int64
	Value     string
	Endpoint  *models.Endpoint
}

// v1BinaryAnnotation is either a string tag or, when Address is set, a
// boolean marker whose endpoint is the remote peer.
type v1BinaryAnnotation struct {
	Key      string
	Value    string
	Address  bool
	Endpoint *models.Endpoint
}

type v1Span struct {
	TraceID           string
	Name              string
	ID                string
	ParentID          string
	Timestamp         int64
	Duration          int64
	Debug             bool
	Annotations       []v1Annotation
	BinaryAnnotations []v1BinaryAnnotation
}

// toV1 converts a span to the v1 model. Local spans get all four RPC
// annotations, as if the client and server sides were both recorded here.
func toV1(s models.Span) v1Span {
	v := v1Span{
		TraceID:   s.TraceID(),
		Name:      s.Name(),
		ID:        s.ID(),
		Timestamp: s.Timestamp(),
		Duration:  s.Duration(),
		Debug:     s.Debug(),
	}
	v.ParentID, _ = s.ParentID()

	var local *models.Endpoint
	if e, ok := s.LocalEndpoint(); ok {
		local = &e
	}
	kind, hasKind := s.Kind()

	var core []models.Annotation
	if start := s.Timestamp(); start > 0 {
		end := start + s.Duration()
		switch {
		case !hasKind:
			core = []models.Annotation{
				{Timestamp: start, Value: clientSend},
				{Timestamp: start, Value: serverRecv},
				{Timestamp: end, Value: serverSend},
				{Timestamp: end, Value: clientRecv},
			}
		case kind == models.Client:
			core = []models.Annotation{{Timestamp: start, Value: clientSend}, {Timestamp: end, Value: clientRecv}}
		case kind == models.Server:
			core = []models.Annotation{{Timestamp: start, Value: serverRecv}, {Timestamp: end, Value: serverSend}}
		case kind == models.Producer:
			core = []models.Annotation{{Timestamp: start, Value: messageSend}}
		case kind == models.Consumer:
			core = []models.Annotation{{Timestamp: start, Value: messageRecv}}
		}
	}

	// user annotations override core ones with the same value
	index := make(map[string]int)
	for _, a := range append(core, s.Annotations()...) {
		if i, ok := index[a.Value]; ok {
			v.Annotations[i].Timestamp = a.Timestamp
			continue
		}
		index[a.Value] = len(v.Annotations)
		v.Annotations = append(v.Annotations, v1Annotation{Timestamp: a.Timestamp, Value: a.Value, Endpoint: local})
	}

	tags := s.Tags()
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.BinaryAnnotations = append(v.BinaryAnnotations, v1BinaryAnnotation{Key: k, Value: tags[k], Endpoint: local})
	}

	if remote, ok := s.RemoteEndpoint(); ok {
		v.BinaryAnnotations = append(v.BinaryAnnotations, v1BinaryAnnotation{
			Key:      addressKey(kind, hasKind),
			Value:    tagTrueValue,
			Address:  true,
			Endpoint: &remote,
		})
	}
	return v
}

func addressKey(kind models.Kind, hasKind bool) string {
	switch {
	case hasKind && kind == models.Server:
		return clientAddr
	case hasKind && (kind == models.Producer || kind == models.Consumer):
		return messageAddr
	default:
		return serverAddr
	}
}

// fromV1 converts a v1 span back. The kind is derived from the core
// annotations, which are then dropped.
func fromV1(v v1Span) (models.Span, error) {
	p := models.SpanParams{
		TraceID:  v.TraceID,
		ID:       v.ID,
		ParentID: v.ParentID,
		Name:     v.Name,
		Debug:    v.Debug,
	}

	core := make(map[string]int64)
	for _, a := range v.Annotations {
		if a.Endpoint != nil && p.LocalEndpoint == nil {
			p.LocalEndpoint = a.Endpoint
		}
		if coreAnnotations[a.Value] {
			core[a.Value] = a.Timestamp
			continue
		}
		p.Annotations = append(p.Annotations, models.Annotation{Timestamp: a.Timestamp, Value: a.Value})
	}
	p.Kind, p.Timestamp, p.Duration = kindFromCore(core)
	if v.Timestamp > 0 {
		p.Timestamp = v.Timestamp
	}
	if v.Duration > 0 {
		p.Duration = v.Duration
	}

	for _, b := range v.BinaryAnnotations {
		if b.Address && addressAnnotations[b.Key] {
			if b.Endpoint != nil {
				p.RemoteEndpoint = b.Endpoint
			}
			continue
		}
		if b.Endpoint != nil && p.LocalEndpoint == nil {
			p.LocalEndpoint = b.Endpoint
		}
		if p.Tags == nil {
			p.Tags = make(map[string]string)
		}
		p.Tags[b.Key] = b.Value
	}
	return models.NewSpan(p)
}

func kindFromCore(core map[string]int64) (kind models.Kind, timestamp, duration int64) {
	cs, hasCS := core[clientSend]
	sr, hasSR := core[serverRecv]
	switch {
	case hasCS && !hasSR:
		kind, timestamp = models.Client, cs
		if cr, ok := core[clientRecv]; ok {
			duration = cr - cs
		}
	case hasSR && !hasCS:
		kind, timestamp = models.Server, sr
		if ss, ok := core[serverSend]; ok {
			duration = ss - sr
		}
	case hasCS && hasSR:
		timestamp = cs
		if cr, ok := core[clientRecv]; ok {
			duration = cr - cs
		}
	default:
		if ms, ok := core[messageSend]; ok {
			kind, timestamp = models.Producer, ms
		} else if mr, ok := core[messageRecv]; ok {
			kind, timestamp = models.Consumer, mr
		}
	}
	return kind, timestamp, duration
}
