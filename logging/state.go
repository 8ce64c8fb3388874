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

package logging

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// StateLogger is a Logger that logs error only if logErrorInterval have passed
// from the last error, or it is a different error than the last seen.
// Errors are compared by message.
type StateLogger struct {
	logger           Logger
	clock            clockz.Clock
	logErrorInterval time.Duration
	lastError        string
	failing          bool
	lastErrorTime    time.Time
	mutex            sync.Mutex
}

// NewStateLogger creates a new StateLogger
func NewStateLogger(logger Logger, logErrorInterval time.Duration) *StateLogger {
	return NewStateLoggerWithClock(logger, logErrorInterval, clockz.RealClock)
}

// NewStateLoggerWithClock creates a StateLogger measuring the interval on
// clock.
func NewStateLoggerWithClock(logger Logger, logErrorInterval time.Duration, clock clockz.Clock) *StateLogger {
	return &StateLogger{
		logger:           logger,
		clock:            clock,
		logErrorInterval: logErrorInterval,
	}
}

// LogError logs an error if it is different from the last seen error,
// or that logErrorInterval have passed since the last reported error.
func (se *StateLogger) LogError(err error, keyvals ...interface{}) {
	se.mutex.Lock()
	defer se.mutex.Unlock()
	msg := err.Error()
	if se.failing && msg == se.lastError && se.clock.Since(se.lastErrorTime) < se.logErrorInterval {
		return
	}
	_ = se.logger.Log(append(keyvals, "err", msg)...)
	se.failing = true
	se.lastError = msg
	se.lastErrorTime = se.clock.Now()
}

// Fixed makes the stateLogger understand that the state is fixed, and when
// the next error will occur, it will log it.
func (se *StateLogger) Fixed(keyVal ...interface{}) {
	se.mutex.Lock()
	defer se.mutex.Unlock()
	if se.logErrorInterval == 0 || !se.failing {
		return
	}
	_ = se.logger.Log(keyVal...)
	se.failing = false
}
