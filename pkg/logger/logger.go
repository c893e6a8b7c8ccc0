/*
 * MIT License
 *
 * (C) Copyright 2025 Hewlett Packard Enterprise Development LP
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 * THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 * OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 * ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 * OTHER DEALINGS IN THE SOFTWARE.
 */

// Package logger provides RRS's process-wide structured logger: a slog
// singleton that can be reconfigured once at startup (human-readable
// "unstructured" text by default, structured JSON when UNSTRUCTURED_LOGS is
// false) and a
// logr.Logger adapter for the client-go/controller libraries that expect one.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/stacklok/toolhive-core/env"
	"github.com/stacklok/toolhive-core/logging"
)

var singleton atomic.Pointer[slog.Logger]

func init() {
	singleton.Store(logging.New(logging.WithOutput(os.Stderr)))
}

// unstructuredLogsEnvVar toggles human-readable (as opposed to JSON) output.
// Defaults to true: most operators run RRS interactively or read its logs
// through kubectl logs, where compact JSON is harder to scan than text.
const unstructuredLogsEnvVar = "UNSTRUCTURED_LOGS"

// unstructuredLogsWithEnv resolves the UNSTRUCTURED_LOGS toggle via the
// supplied env.Reader, defaulting to true when unset or unparseable.
func unstructuredLogsWithEnv(r env.Reader) bool {
	v := r.Getenv(unstructuredLogsEnvVar)
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func unstructuredLogs() bool {
	return unstructuredLogsWithEnv(env.OSReader{})
}

// Initialize configures the singleton logger from the process environment.
// Safe to call more than once; the last call wins.
func Initialize() {
	InitializeWithEnv(env.OSReader{})
}

// InitializeWithEnv is Initialize with an injectable env.Reader, for tests.
func InitializeWithEnv(r env.Reader) {
	opts := []logging.Option{logging.WithOutput(os.Stderr)}
	if unstructuredLogsWithEnv(r) {
		opts = append(opts, logging.WithTextFormat())
	}
	singleton.Store(logging.New(opts...))
}

// Get returns the current singleton logger.
func Get() *slog.Logger {
	return singleton.Load()
}

// NewLogr adapts the singleton into a logr.Logger, for client-go and any
// controller-style library that wants one.
func NewLogr() logr.Logger {
	return logr.FromSlogHandler(Get().Handler())
}

func log(ctx context.Context, level slog.Level, msg string, args ...any) {
	l := Get()
	if !l.Enabled(ctx, level) {
		if level < slog.LevelInfo {
			return
		}
	}
	l.Log(ctx, level, msg, args...)
}

// Debug logs msg at debug level.
func Debug(msg string) { log(context.Background(), slog.LevelDebug, msg) }

// Debugf logs a printf-style message at debug level.
func Debugf(format string, args ...any) { Debug(sprintf(format, args...)) }

// Debugw logs msg at debug level with structured key/value pairs.
func Debugw(msg string, kvs ...any) { log(context.Background(), slog.LevelDebug, msg, kvs...) }

// Info logs msg at info level.
func Info(msg string) { log(context.Background(), slog.LevelInfo, msg) }

// Infof logs a printf-style message at info level.
func Infof(format string, args ...any) { Info(sprintf(format, args...)) }

// Infow logs msg at info level with structured key/value pairs.
func Infow(msg string, kvs ...any) { log(context.Background(), slog.LevelInfo, msg, kvs...) }

// Warn logs msg at warn level.
func Warn(msg string) { log(context.Background(), slog.LevelWarn, msg) }

// Warnf logs a printf-style message at warn level.
func Warnf(format string, args ...any) { Warn(sprintf(format, args...)) }

// Warnw logs msg at warn level with structured key/value pairs.
func Warnw(msg string, kvs ...any) { log(context.Background(), slog.LevelWarn, msg, kvs...) }

// Error logs msg at error level.
func Error(msg string) { log(context.Background(), slog.LevelError, msg) }

// Errorf logs a printf-style message at error level.
func Errorf(format string, args ...any) { Error(sprintf(format, args...)) }

// Errorw logs msg at error level with structured key/value pairs.
func Errorw(msg string, kvs ...any) { log(context.Background(), slog.LevelError, msg, kvs...) }

const dpanicLevel = slog.Level(12) // between Error (8) and a hypothetical Fatal

// DPanic logs msg at a dev-panic level: it panics only in development builds
// upstream (here it always logs; callers that need the panic use Panic).
func DPanic(msg string) { log(context.Background(), dpanicLevel, msg) }

// DPanicf is DPanic with printf-style formatting.
func DPanicf(format string, args ...any) { DPanic(sprintf(format, args...)) }

// DPanicw is DPanic with structured key/value pairs.
func DPanicw(msg string, kvs ...any) { log(context.Background(), dpanicLevel, msg, kvs...) }

// Panic logs msg at error level, then panics with msg.
func Panic(msg string) {
	log(context.Background(), slog.LevelError, msg)
	panic(msg)
}

// Panicf is Panic with printf-style formatting.
func Panicf(format string, args ...any) {
	msg := sprintf(format, args...)
	log(context.Background(), slog.LevelError, msg)
	panic(msg)
}

// Panicw is Panic with structured key/value pairs.
func Panicw(msg string, kvs ...any) {
	log(context.Background(), slog.LevelError, msg, kvs...)
	panic(msg)
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
