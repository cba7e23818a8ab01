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

package httpscope

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// responseBodyPlaceholder is logged in place of every response body.
// Response bodies are never read: consuming the stream would break the
// caller, and token responses would leak credentials into logs.
const responseBodyPlaceholder = "[Response body not captured to prevent consumption issues]"

// requestIDPrefix tags every correlation identifier so records are easy to
// grep out of mixed logs.
const requestIDPrefix = "req_"

// NewRequestID returns a short correlation identifier, unique enough for
// human correlation within one process run. Eight hex characters of a
// random UUID give a negligible collision chance at typical call volumes;
// the ids are session-scoped, not cryptographic.
func NewRequestID() string {
	return requestIDPrefix + uuid.NewString()[:8]
}

// callRecord describes one intercepted call. It is owned exclusively by
// the invocation that created it and discarded once the matching response
// or error record is emitted.
type callRecord struct {
	id     string
	method string
	url    string
	start  time.Time
}

// emitter writes correlated request/response/error records to the channel
// logger. All methods are safe for concurrent use and recover from any
// internal failure: a broken log line must never surface to the wrapped
// call.
type emitter struct {
	logger *slog.Logger
	cfg    *config
}

func newEmitter(cfg *config) *emitter {
	return &emitter{logger: cfg.channelLogger(), cfg: cfg}
}

// newCallRecord starts a call record with a fresh correlation id.
func (e *emitter) newCallRecord(method, url string) callRecord {
	return callRecord{
		id:     e.cfg.newID(),
		method: method,
		url:    url,
		start:  time.Now(),
	}
}

// logRequest emits the request frame. OAuth traffic gets the uppercase
// framing so token-exchange calls stand out during auth debugging.
func (e *emitter) logRequest(ctx context.Context, rec callRecord, headers http.Header, body []byte, cls Classification) {
	defer e.recoverEmit(ctx)

	opening := "=== Outgoing HTTP Request ==="
	if cls.IsOAuth {
		opening = "=== OAUTH HTTP REQUEST ==="
	}

	attrs := e.recordAttrs(ctx, rec)
	e.info(ctx, opening, attrs)
	e.info(ctx, "Request ID: "+rec.id, attrs)
	e.info(ctx, "Method: "+rec.method, attrs)
	e.info(ctx, "URL: "+rec.url, attrs)
	e.info(ctx, "Headers: "+marshalHeaders(SanitizeHeaders(headers)), attrs)
	e.info(ctx, "Body: "+FormatBody(body, cls.BodyEncoding, e.cfg.redactBodySecrets, e.cfg.bodyLimit), attrs)
	e.info(ctx, "=== End Request ===", attrs)
}

// logResponse emits the response frame. The body line is always the fixed
// placeholder; status, redacted headers, and elapsed time carry the useful
// signal.
func (e *emitter) logResponse(ctx context.Context, rec callRecord, status int, headers http.Header, elapsed time.Duration, cls Classification) {
	defer e.recoverEmit(ctx)

	opening := "=== HTTP Response ==="
	if cls.IsOAuth {
		opening = "=== OAUTH HTTP RESPONSE ==="
	}

	attrs := e.recordAttrs(ctx, rec)
	e.info(ctx, opening, attrs)
	e.info(ctx, "Request ID: "+rec.id, attrs)
	e.info(ctx, fmt.Sprintf("Status Code: %d", status), attrs)
	e.info(ctx, formatElapsed(elapsed), attrs)
	e.info(ctx, "Headers: "+marshalHeaders(SanitizeHeaders(headers)), attrs)
	e.info(ctx, "Body: "+responseBodyPlaceholder, attrs)
	e.info(ctx, "=== End Response ===", attrs)
}

// logError emits the failure frame. Errors are not classified as OAuth or
// otherwise; the description and elapsed time are what matter.
func (e *emitter) logError(ctx context.Context, rec callRecord, description string, elapsed time.Duration) {
	defer e.recoverEmit(ctx)

	attrs := e.recordAttrs(ctx, rec)
	e.errorLine(ctx, "=== HTTP Request Failed ===", attrs)
	e.errorLine(ctx, "Request ID: "+rec.id, attrs)
	e.errorLine(ctx, "Error: "+description, attrs)
	e.errorLine(ctx, formatElapsed(elapsed), attrs)
	e.errorLine(ctx, "=== End Error ===", attrs)
}

func (e *emitter) info(ctx context.Context, msg string, attrs []slog.Attr) {
	e.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (e *emitter) errorLine(ctx context.Context, msg string, attrs []slog.Attr) {
	e.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

// recordAttrs builds the structured attributes shared by every line of a
// frame: the correlation id, plus the active trace id when a valid span
// context is present so log/trace correlation works across systems.
func (e *emitter) recordAttrs(ctx context.Context, rec callRecord) []slog.Attr {
	attrs := []slog.Attr{slog.String("request_id", rec.id)}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}
	return attrs
}

// recoverEmit contains any panic raised while formatting or writing a
// frame. The fallback record is itself best-effort; if it fails too the
// frame is simply lost, never the wrapped call.
func (e *emitter) recoverEmit(ctx context.Context) {
	if r := recover(); r != nil {
		defer func() { _ = recover() }()
		e.logger.LogAttrs(ctx, slog.LevelError, "httpscope: log emit failed", slog.Any("panic", r))
	}
}

// marshalHeaders renders a sanitized header mapping as indented JSON.
// encoding/json sorts map keys, so output is deterministic for a given
// mapping.
func marshalHeaders(headers map[string]string) string {
	out, err := json.MarshalIndent(headers, "", "  ")
	if err != nil {
		return "(unloggable headers)"
	}
	return string(out)
}

// formatElapsed renders elapsed wall-clock time as milliseconds with two
// decimal places, e.g. "Response Time: 12.34ms".
func formatElapsed(elapsed time.Duration) string {
	return fmt.Sprintf("Response Time: %.2fms", float64(elapsed.Microseconds())/1000.0)
}
