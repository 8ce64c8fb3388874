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

package models

import "fmt"

// ConfigurationError is returned when a value or a call sequence can never
// be valid: malformed ids, unknown encodings, stopping a span twice, etc.
type ConfigurationError struct {
	Msg string
	Err error
}

// Configurationf returns a *ConfigurationError with a formatted message.
func Configurationf(format string, args ...interface{}) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return "configuration error: " + e.Msg + ": " + e.Err.Error()
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
