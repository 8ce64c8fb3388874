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

// Package transport delivers encoded span payloads to a collector.
package transport

// Handler sends encoded span batches. A Handler returning an error never
// fails the traced operation; the tracer logs the error and moves on.
type Handler interface {
	// Send delivers one encoded payload.
	Send(payload []byte) error
	// MaxPayloadBytes limits the size of a payload; 0 means unbounded.
	MaxPayloadBytes() int
}

// HandlerFunc is an adapter to allow the use of ordinary functions as an
// unbounded Handler.
type HandlerFunc func(payload []byte) error

// Send implements Handler
func (f HandlerFunc) Send(payload []byte) error { return f(payload) }

// MaxPayloadBytes implements Handler
func (f HandlerFunc) MaxPayloadBytes() int { return 0 }
