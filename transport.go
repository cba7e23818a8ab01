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
	"bytes"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Transport wraps base (or http.DefaultTransport if nil) in a logging
// round tripper that emits correlated request/response/error records for
// every call. The wrapped call's outcome is returned verbatim: the
// decorator observes, it never mutates results, suppresses errors, or
// consumes response bodies.
//
// With [WithOTelTransport](true) the base is first wrapped in
// otelhttp.NewTransport so spans cover the real dispatch.
func Transport(base http.RoundTripper, opts ...Option) http.RoundTripper {
	cfg := applyOptions(opts)
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.enableOTel {
		base = otelhttp.NewTransport(base)
	}
	return &roundTripper{
		base:    base,
		cfg:     cfg,
		emitter: newEmitter(cfg),
	}
}

type roundTripper struct {
	base    http.RoundTripper
	cfg     *config
	emitter *emitter
}

// RoundTrip implements http.RoundTripper. It builds a call record, injects
// trace context, emits a request record reflecting the headers actually
// dispatched, delegates to the base transport, measures elapsed time, and
// emits the matching response or error record before handing the original
// result back unchanged.
func (t *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil || t.cfg.shouldSkip(req) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	url := ""
	if req.URL != nil {
		url = req.URL.String()
	}
	rec := t.emitter.newCallRecord(req.Method, url)

	t.injectTrace(req)

	body := snapshotBody(req)
	cls := Classify(rec.url, req.Header, body)

	t.emitter.logRequest(ctx, rec, req.Header, body, cls)

	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(rec.start)

	if err != nil {
		t.emitter.logError(ctx, rec, err.Error(), elapsed)
		return resp, err
	}

	status := 0
	headers := http.Header(nil)
	if resp != nil {
		status = resp.StatusCode
		headers = resp.Header
	}
	t.emitter.logResponse(ctx, rec, status, headers, elapsed, cls)
	return resp, err
}

// injectTrace adds a W3C traceparent header derived from the request
// context when a valid span context is present. An existing header is left
// untouched, as is everything else about the request.
func (t *roundTripper) injectTrace(req *http.Request) {
	if !t.cfg.propagateTrace || req.Header == nil {
		return
	}
	if req.Header.Get("traceparent") != "" {
		return
	}
	if sc := trace.SpanContextFromContext(req.Context()); !sc.IsValid() {
		return
	}
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
}

// snapshotBody captures the request body for logging without disturbing
// the dispatch. GetBody, when available, yields a fresh reader and leaves
// the original stream alone; otherwise the body is drained and replaced
// with an equivalent buffered reader. A GetBody failure returns nil and
// the body is logged as empty; a mid-stream read failure is preserved in
// the replacement reader so the dispatch fails with the same error it
// would have without logging.
func snapshotBody(req *http.Request) []byte {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}

	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil
		}
		defer func() { _ = rc.Close() }()
		buf, err := io.ReadAll(rc)
		if err != nil {
			return nil
		}
		return buf
	}

	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		// Replay the buffered prefix, then the original read error.
		req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf), errReader{err}))
		return nil
	}
	req.Body = io.NopCloser(bytes.NewReader(buf))
	return buf
}

// errReader yields a fixed error on every read.
type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
