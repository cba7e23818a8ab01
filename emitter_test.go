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
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordedEntry captures one emitted log record for assertions.
type recordedEntry struct {
	level slog.Level
	msg   string
	attrs map[string]string
}

type recorder struct {
	mu      sync.Mutex
	entries []recordedEntry
}

func (r *recorder) add(entry recordedEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recorder) all() []recordedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEntry(nil), r.entries...)
}

func (r *recorder) messages() []string {
	entries := r.all()
	msgs := make([]string, len(entries))
	for i, entry := range entries {
		msgs[i] = entry.msg
	}
	return msgs
}

func (r *recorder) firstWithPrefix(prefix string) (recordedEntry, bool) {
	for _, entry := range r.all() {
		if strings.HasPrefix(entry.msg, prefix) {
			return entry, true
		}
	}
	return recordedEntry{}, false
}

type recordingHandler struct {
	state *recorder
	attrs []slog.Attr
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		attrs[attr.Key] = attr.Value.String()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.String()
		return true
	})
	h.state.add(recordedEntry{level: record.Level, msg: record.Message, attrs: attrs})
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &recordingHandler{state: h.state, attrs: merged}
}

func (h *recordingHandler) WithGroup(string) slog.Handler {
	return &recordingHandler{state: h.state, attrs: h.attrs}
}

func newRecordingLogger() (*slog.Logger, *recorder) {
	state := &recorder{}
	return slog.New(&recordingHandler{state: state}), state
}

func newTestEmitter(t *testing.T, opts ...Option) (*emitter, *recorder) {
	t.Helper()
	logger, records := newRecordingLogger()
	cfg := applyOptions(append([]Option{WithLogger(logger)}, opts...))
	return newEmitter(cfg), records
}

func TestLogRequestStandardFrame(t *testing.T) {
	t.Parallel()

	e, records := newTestEmitter(t, WithRequestIDGenerator(func() string { return "req_test0001" }))
	rec := e.newCallRecord(http.MethodGet, "https://example.com/health")

	e.logRequest(context.Background(), rec, http.Header{}, nil, Classification{BodyEncoding: EncodingRaw})

	want := []string{
		"=== Outgoing HTTP Request ===",
		"Request ID: req_test0001",
		"Method: GET",
		"URL: https://example.com/health",
		"Headers: {}",
		"Body: (empty)",
		"=== End Request ===",
	}
	got := records.messages()
	if len(got) != len(want) {
		t.Fatalf("emitted %d records, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLogRequestOAuthFrame(t *testing.T) {
	t.Parallel()

	e, records := newTestEmitter(t)
	rec := e.newCallRecord(http.MethodPost, "https://login.microsoftonline.com/common/oauth2/v2.0/token")

	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	body := []byte("grant_type=client_credentials&client_id=abc")

	e.logRequest(context.Background(), rec, headers, body, Classification{IsOAuth: true, BodyEncoding: EncodingForm})

	msgs := records.messages()
	if msgs[0] != "=== OAUTH HTTP REQUEST ===" {
		t.Errorf("opening frame = %q", msgs[0])
	}
	if msgs[len(msgs)-1] != "=== End Request ===" {
		t.Errorf("closing frame = %q", msgs[len(msgs)-1])
	}
}

func TestLogResponseFrame(t *testing.T) {
	t.Parallel()

	e, records := newTestEmitter(t)
	rec := e.newCallRecord(http.MethodGet, "https://example.com/api")

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Set-Cookie", "session=abc")

	e.logResponse(context.Background(), rec, 200, headers, 42*time.Millisecond, Classification{})

	msgs := records.messages()
	if msgs[0] != "=== HTTP Response ===" {
		t.Errorf("opening frame = %q", msgs[0])
	}
	if msgs[1] != "Request ID: "+rec.id {
		t.Errorf("request id line = %q", msgs[1])
	}
	if msgs[2] != "Status Code: 200" {
		t.Errorf("status line = %q", msgs[2])
	}
	if msgs[3] != "Response Time: 42.00ms" {
		t.Errorf("elapsed line = %q", msgs[3])
	}
	if !strings.Contains(msgs[4], Redacted) {
		t.Errorf("Set-Cookie not redacted: %q", msgs[4])
	}
	if msgs[5] != "Body: "+responseBodyPlaceholder {
		t.Errorf("body line = %q", msgs[5])
	}
	if msgs[6] != "=== End Response ===" {
		t.Errorf("closing frame = %q", msgs[6])
	}
}

func TestLogResponseOAuthFrame(t *testing.T) {
	t.Parallel()

	e, records := newTestEmitter(t)
	rec := e.newCallRecord(http.MethodPost, "https://login.microsoftonline.com/token")

	e.logResponse(context.Background(), rec, 200, http.Header{}, time.Millisecond, Classification{IsOAuth: true})

	if msgs := records.messages(); msgs[0] != "=== OAUTH HTTP RESPONSE ===" {
		t.Fatalf("opening frame = %q", msgs[0])
	}
}

func TestLogErrorFrame(t *testing.T) {
	t.Parallel()

	e, records := newTestEmitter(t)
	rec := e.newCallRecord(http.MethodGet, "https://example.com/api")

	e.logError(context.Background(), rec, "dial tcp: i/o timeout", 1500*time.Millisecond)

	want := []string{
		"=== HTTP Request Failed ===",
		"Request ID: " + rec.id,
		"Error: dial tcp: i/o timeout",
		"Response Time: 1500.00ms",
		"=== End Error ===",
	}
	got := records.messages()
	if len(got) != len(want) {
		t.Fatalf("emitted %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
	for _, entry := range records.all() {
		if entry.level != slog.LevelError {
			t.Errorf("record %q at level %v, want error", entry.msg, entry.level)
		}
	}
}

func TestEmitterRecordsCarryRequestIDAttr(t *testing.T) {
	t.Parallel()

	e, records := newTestEmitter(t)
	rec := e.newCallRecord(http.MethodGet, "https://example.com/api")

	e.logRequest(context.Background(), rec, http.Header{}, nil, Classification{BodyEncoding: EncodingRaw})

	for _, entry := range records.all() {
		if entry.attrs["request_id"] != rec.id {
			t.Fatalf("record %q missing request_id attr: %v", entry.msg, entry.attrs)
		}
	}
}

func TestEmitterChannelAttr(t *testing.T) {
	t.Parallel()

	e, records := newTestEmitter(t)
	rec := e.newCallRecord(http.MethodGet, "https://example.com/api")

	e.logError(context.Background(), rec, "boom", 0)

	entry, ok := records.firstWithPrefix("=== HTTP Request Failed ===")
	if !ok {
		t.Fatal("error frame not emitted")
	}
	if entry.attrs["logger"] != DefaultChannel {
		t.Fatalf("logger attr = %q, want %q", entry.attrs["logger"], DefaultChannel)
	}
}

func TestNewRequestIDShapeAndUniqueness(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for range 1000 {
		id := NewRequestID()
		if !strings.HasPrefix(id, requestIDPrefix) {
			t.Fatalf("id %q missing prefix %q", id, requestIDPrefix)
		}
		if len(id) != len(requestIDPrefix)+8 {
			t.Fatalf("id %q has wrong length", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q within 1000 draws", id)
		}
		seen[id] = struct{}{}
	}
}
