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

// Package httpscope intercepts outbound HTTP traffic and emits structured,
// correlated request/response/error log records through [log/slog], with
// automatic redaction of credentials and special-case framing for OAuth
// token-exchange calls. It was built for bot services that talk to the
// Microsoft identity platform, Bot Connector, and Graph APIs, but wraps
// any [net/http] client.
//
// The core is an [http.RoundTripper] decorator: [Transport] wraps a base
// transport, assigns each call a short correlation id, logs a redacted
// view of the request, delegates the dispatch unchanged, and logs the
// response status, headers, and elapsed time (or the failure) under the
// same id. Response bodies are never read: consuming the stream would
// break the caller and token responses would leak credentials.
//
// Interception is strictly observational. The wrapped call's return value
// and error pass through verbatim, and any failure inside the logging path
// is contained; at worst, log output degrades while traffic continues.
//
// # Usage
//
// Compose the decorator at client construction time:
//
//	client := &http.Client{
//	    Transport: httpscope.Transport(nil,
//	        httpscope.WithLogger(logger),
//	    ),
//	}
//
// Applications that cannot re-plumb their HTTP stack can instead install
// the decorator process-wide around http.DefaultTransport:
//
//	if err := httpscope.EnableHTTPLogging(); err != nil {
//	    log.Fatal(err)
//	}
//	defer httpscope.DisableHTTPLogging()
//
// Both forms are idempotent at the patch level: enabling twice never
// double-wraps, and disabling when not enabled is a no-op.
//
// # Log channel
//
// Records are written at info level (error level for failures) to a named
// channel, "OutgoingHTTP" by default, attached as the "logger" attribute
// on every record. Handler, level, and destination configuration belong to
// the host application; this package only owns the channel name and the
// message shapes.
//
// # OAuth classification and redaction
//
// [Classify] decides per call whether traffic is OAuth-related from the
// URL, an Authorization Bearer header, or recognizable token-exchange body
// fields, and which encoding the body uses (JSON preferred, then
// URL-encoded form, then raw text, with a binary-safe fallback).
// Sensitive headers are always replaced with [Redacted]; credential fields
// inside logged bodies are redacted by default and can be logged verbatim
// with [WithBodySecretRedaction](false).
//
// Several settings can also be supplied through HTTPSCOPE_* environment
// variables (see [Option] docs), so the same binary can log differently
// across environments without code changes.
//
// The companion package [github.com/scopelog/httpscope/grpc] applies the
// same correlation, redaction, and framing to unary gRPC client calls.
package httpscope
