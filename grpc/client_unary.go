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
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/scopelog/httpscope"
)

// NewUnaryClientInterceptor returns a grpc.UnaryClientInterceptor that
// emits correlated request/response/error records for every unary call,
// in the same framed shape the HTTP transport uses. Outgoing metadata is
// sanitized with httpscope's header redaction rules before logging, trace
// context is injected into the outgoing metadata, and the invoker's error
// is returned unchanged.
func NewUnaryClientInterceptor(opts ...Option) grpc.UnaryClientInterceptor {
	cfg := processOptions(opts...)
	logger := cfg.channelLogger()

	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		callOpts ...grpc.CallOption,
	) error {
		if cfg.shouldLog != nil && !cfg.shouldLog(ctx, method) {
			return invoker(ctx, method, req, reply, cc, callOpts...)
		}

		id := cfg.newID()
		start := time.Now()

		outgoingMD, _ := metadata.FromOutgoingContext(ctx)
		emitRequest(ctx, logger, cfg, id, method, cc.Target(), outgoingMD, req)

		if cfg.propagateTrace {
			ctx = injectTraceMetadata(ctx, outgoingMD)
		}

		err := invoker(ctx, method, req, reply, cc, callOpts...)
		elapsed := time.Since(start)

		if err != nil {
			emitError(ctx, logger, id, err, elapsed)
			return err
		}
		emitResponse(ctx, logger, id, codes.OK.String(), elapsed)
		return nil
	}
}

// injectTraceMetadata copies the outgoing metadata and appends trace
// context headers from the global propagator. The caller's metadata is
// never mutated.
func injectTraceMetadata(ctx context.Context, md metadata.MD) context.Context {
	carrier := propagation.HeaderCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return ctx
	}

	withTrace := md.Copy()
	for key, values := range carrier {
		if len(values) > 0 {
			withTrace.Append(key, values...)
		}
	}
	return metadata.NewOutgoingContext(ctx, withTrace)
}

func emitRequest(ctx context.Context, logger *slog.Logger, cfg *options, id, method, target string, md metadata.MD, payload any) {
	defer recoverEmit(ctx, logger)

	attrs := []slog.Attr{slog.String("request_id", id)}
	info := func(msg string) { logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...) }

	info("=== Outgoing gRPC Request ===")
	info("Request ID: " + id)
	info("Method: " + method)
	info("Target: " + target)
	info("Metadata: " + sanitizeMetadata(md))
	info("Body: " + formatPayload(payload, cfg.logPayloads))
	info("=== End Request ===")
}

func emitResponse(ctx context.Context, logger *slog.Logger, id, code string, elapsed time.Duration) {
	defer recoverEmit(ctx, logger)

	attrs := []slog.Attr{slog.String("request_id", id)}
	info := func(msg string) { logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...) }

	info("=== gRPC Response ===")
	info("Request ID: " + id)
	info("Status Code: " + code)
	info(formatElapsed(elapsed))
	info("=== End Response ===")
}

func emitError(ctx context.Context, logger *slog.Logger, id string, err error, elapsed time.Duration) {
	defer recoverEmit(ctx, logger)

	attrs := []slog.Attr{slog.String("request_id", id)}
	errLine := func(msg string) { logger.LogAttrs(ctx, slog.LevelError, msg, attrs...) }

	errLine("=== gRPC Request Failed ===")
	errLine("Request ID: " + id)
	errLine("Error: " + err.Error())
	errLine("Status Code: " + status.Code(err).String())
	errLine(formatElapsed(elapsed))
	errLine("=== End Error ===")
}

// sanitizeMetadata renders outgoing metadata with httpscope's header
// redaction rules. metadata.MD and http.Header share a representation, so
// the same sanitizer applies; encoding/json keeps the key order
// deterministic.
func sanitizeMetadata(md metadata.MD) string {
	sanitized := httpscope.SanitizeHeaders(http.Header(md))
	out, err := json.MarshalIndent(sanitized, "", "  ")
	if err != nil {
		return "(unloggable metadata)"
	}
	return string(out)
}

// formatPayload renders a request payload for logging. Proto messages go
// through protojson with stable field ordering; anything else falls back
// to a placeholder. Payload logging is opt-in.
func formatPayload(payload any, enabled bool) string {
	if !enabled {
		return "(omitted)"
	}
	msg, ok := payload.(proto.Message)
	if !ok {
		return fmt.Sprintf("(non-proto payload %T)", payload)
	}
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
	if err != nil {
		return "(unloggable payload)"
	}
	return string(out)
}

// recoverEmit contains any panic raised while formatting a frame, keeping
// the logging path strictly observational.
func recoverEmit(ctx context.Context, logger *slog.Logger) {
	if r := recover(); r != nil {
		defer func() { _ = recover() }()
		logger.LogAttrs(ctx, slog.LevelError, "httpscope: log emit failed", slog.Any("panic", r))
	}
}

// formatElapsed matches the HTTP transport's elapsed-time line.
func formatElapsed(elapsed time.Duration) string {
	return fmt.Sprintf("Response Time: %.2fms", float64(elapsed.Microseconds())/1000.0)
}
