// Copyright 2025 The httpscope Authors
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

package grpc

import (
	"context"
	"log/slog"
	"strings"

	"github.com/scopelog/httpscope"
)

// Option configures the interceptors created by this package. It follows
// the functional options pattern.
type Option func(*options)

// ShouldLogFunc decides whether a call should be logged based on its
// context and full method name (e.g. "/package.Service/Method").
// Returning false skips all records for that call. Useful for filtering
// health checks and other high-volume, low-interest RPCs.
type ShouldLogFunc func(ctx context.Context, fullMethod string) bool

type options struct {
	logger         *slog.Logger
	channel        string
	shouldLog      ShouldLogFunc
	logPayloads    bool
	propagateTrace bool
	newID          func() string
}

func defaultOptions() *options {
	return &options{
		channel:        httpscope.DefaultChannel,
		propagateTrace: true,
		newID:          httpscope.NewRequestID,
	}
}

func processOptions(opts ...Option) *options {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// channelLogger derives the logger records are written to, falling back to
// slog.Default the same way the HTTP transport does.
func (o *options) channelLogger() *slog.Logger {
	base := o.logger
	if base == nil {
		base = slog.Default()
	}
	return base.With(slog.String("logger", o.channel))
}

// WithLogger sets the base logger records are emitted through.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithChannel overrides the named log channel attached to every record.
func WithChannel(name string) Option {
	return func(o *options) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			o.channel = trimmed
		}
	}
}

// WithShouldLog configures a predicate to filter which calls get logged.
func WithShouldLog(fn ShouldLogFunc) Option {
	return func(o *options) { o.shouldLog = fn }
}

// WithPayloadLogging enables rendering of outgoing request payloads via
// protojson. Disabled by default; payloads often carry user content.
func WithPayloadLogging(on bool) Option {
	return func(o *options) { o.logPayloads = on }
}

// WithTracePropagation enables or disables trace context injection into
// outgoing metadata (default: enabled).
func WithTracePropagation(on bool) Option {
	return func(o *options) { o.propagateTrace = on }
}

// WithRequestIDGenerator replaces the correlation-id generator. Intended
// for tests that need deterministic ids.
func WithRequestIDGenerator(f func() string) Option {
	return func(o *options) {
		if f != nil {
			o.newID = f
		}
	}
}
