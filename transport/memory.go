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

import "sync"

// MemoryHandler keeps every payload it is sent. It is meant for tests and
// debugging.
type MemoryHandler struct {
	mu              sync.Mutex
	payloads        [][]byte
	maxPayloadBytes int
}

// NewMemoryHandler returns a MemoryHandler announcing the given payload
// limit; 0 means unbounded.
func NewMemoryHandler(maxPayloadBytes int) *MemoryHandler {
	return &MemoryHandler{maxPayloadBytes: maxPayloadBytes}
}

// Send implements Handler
func (h *MemoryHandler) Send(payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads = append(h.payloads, append([]byte(nil), payload...))
	return nil
}

// MaxPayloadBytes implements Handler
func (h *MemoryHandler) MaxPayloadBytes() int { return h.maxPayloadBytes }

// Payloads returns the payloads received so far, oldest first.
func (h *MemoryHandler) Payloads() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.payloads...)
}

// Reset forgets all received payloads.
func (h *MemoryHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads = nil
}
