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
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/openzipkin/zipkin-go"
)

// Sampler decides whether a new trace is recorded. rate is a percentage
// between 0 and 100.
type Sampler interface {
	IsSampled(traceID string, rate float64) bool
}

// SamplerFunc is an adapter to allow the use of ordinary functions as
// Sampler.
type SamplerFunc func(traceID string, rate float64) bool

// IsSampled implements Sampler
func (f SamplerFunc) IsSampled(traceID string, rate float64) bool {
	return f(traceID, rate)
}

// RandomSampler samples a trace when a uniform draw from src in [0, 100)
// falls below the rate.
func RandomSampler(src rand.Source) Sampler {
	r := rand.New(src)
	var mu sync.Mutex
	return SamplerFunc(func(_ string, rate float64) bool {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()*100 < rate
	})
}

func defaultSampler() Sampler {
	return RandomSampler(rand.NewSource(time.Now().UnixNano()))
}

// FromZipkinSampler adapts a zipkin-go sampler, which decides on the low 64
// bits of the trace id and carries its own rate.
func FromZipkinSampler(s zipkin.Sampler) Sampler {
	return SamplerFunc(func(traceID string, _ float64) bool {
		if len(traceID) > 16 {
			traceID = traceID[len(traceID)-16:]
		}
		id, err := strconv.ParseUint(traceID, 16, 64)
		if err != nil {
			return false
		}
		return s(id)
	})
}
