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

// Package logging holds the key/value Logger used across the tracer and its
// transports, plus adapters onto zap.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger interface used by this package.
// This means that we accept Go kit Log compatible loggers
type Logger interface {
	Log(keyvals ...interface{}) error
}

// NewNopLogger provides a Logger that discards all Log data sent to it.
func NewNopLogger() Logger {
	return &nopLogger{}
}

// LoggerFunc is an adapter to allow the use of ordinary functions as
// Logger.
type LoggerFunc func(keyvals ...interface{}) error

// Log implements Logger
func (f LoggerFunc) Log(keyvals ...interface{}) error {
	return f(keyvals...)
}

type nopLogger struct{}

func (*nopLogger) Log(_ ...interface{}) error { return nil }

// NewZapLogger adapts a zap logger. The "msg" key becomes the log message;
// entries carrying an "err" key are logged at error level.
func NewZapLogger(l *zap.Logger) Logger {
	return &zapLogger{l: l}
}

type zapLogger struct {
	l *zap.Logger
}

func (z *zapLogger) Log(keyvals ...interface{}) error {
	var (
		msg      string
		hasError bool
		fields   = make([]zap.Field, 0, len(keyvals)/2)
	)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 == len(keyvals) {
			// dangling key
			fields = append(fields, zap.Any("extra", keyvals[i]))
			break
		}
		value := keyvals[i+1]
		switch key {
		case "msg":
			msg = fmt.Sprint(value)
			continue
		case "err":
			hasError = true
		}
		fields = append(fields, zap.Any(key, value))
	}

	if hasError {
		z.l.Error(msg, fields...)
	} else {
		z.l.Info(msg, fields...)
	}
	return nil
}
