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

import "fmt"

// FormatError is returned when the encoding of a payload cannot be
// determined.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "invalid span format: " + e.Msg
}

// DecodeError is returned when a payload is malformed for its encoding.
// Field names the element that failed to decode.
type DecodeError struct {
	Encoding Encoding
	Field    string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %s: %v", e.Encoding, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
