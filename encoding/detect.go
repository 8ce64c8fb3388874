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
	"unicode/utf8"

	"github.com/buger/jsonparser"
)

// keys only the v2 JSON schema has
var v2Keys = []string{"tags", "localEndpoint", "remoteEndpoint", "shared", "kind"}

// Detect inspects an encoded payload and returns its encoding. Binary
// payloads are told apart by their first bytes; a JSON array is V1JSON
// only when an element carries v1-only fields, otherwise V2JSON.
func Detect(data []byte) (Encoding, error) {
	if len(data) < 2 {
		return 0, &FormatError{Msg: "message too short"}
	}

	if data[0] <= 16 {
		// field 1, wire type 2: the spans of a ListOfSpans
		if data[0] == 10 && data[1] != 0 {
			return V2Proto3, nil
		}
		return V1Thrift, nil
	}

	if !utf8.Valid(data) || data[0] != '[' || !json.Valid(data) {
		return 0, &FormatError{Msg: "unknown or unsupported span encoding"}
	}

	detected := V2JSON
	found := false
	_, err := jsonparser.ArrayEach(data, func(span []byte, typ jsonparser.ValueType, _ int, _ error) {
		if found || typ != jsonparser.Object {
			return
		}
		switch {
		case hasAnyKey(span, v2Keys...):
			detected, found = V2JSON, true
		case hasAnyKey(span, "binaryAnnotations") || hasAnnotationEndpoint(span):
			detected, found = V1JSON, true
		}
	})
	if err != nil {
		return 0, &FormatError{Msg: err.Error()}
	}
	return detected, nil
}

func hasAnyKey(object []byte, keys ...string) bool {
	for _, k := range keys {
		if _, _, _, err := jsonparser.Get(object, k); err == nil {
			return true
		}
	}
	return false
}

func hasAnnotationEndpoint(span []byte) bool {
	found := false
	_, _ = jsonparser.ArrayEach(span, func(a []byte, typ jsonparser.ValueType, _ int, _ error) {
		if typ == jsonparser.Object && hasAnyKey(a, "endpoint") {
			found = true
		}
	}, "annotations")
	return found
}
