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
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// FormatBody renders a request body for log output according to its
// detected encoding. It never fails: malformed input degrades to the raw
// or binary representation instead of erroring, so a formatting problem
// can never break the wrapped call.
//
// When redactSecrets is true, credential-bearing fields in decoded JSON
// and form bodies are replaced with [Redacted] before rendering. Raw text
// over limit bytes is truncated with an explicit marker; a limit of zero
// disables truncation.
func FormatBody(body []byte, enc Encoding, redactSecrets bool, limit int) string {
	if len(body) == 0 {
		return "(empty)"
	}

	switch enc {
	case EncodingJSON:
		if out, ok := formatJSON(body, redactSecrets); ok {
			return out
		}
	case EncodingForm:
		if out, ok := formatForm(body, redactSecrets); ok {
			return out
		}
	case EncodingBinary:
		return fmt.Sprintf("[binary body: %d bytes]", len(body))
	}

	return truncate(string(body), limit)
}

// formatJSON pretty-prints a JSON body with two-space indentation. Without
// redaction the source bytes are re-indented in place, preserving the key
// order the caller wrote; with redaction the document is decoded first, so
// rendering falls back to encoding/json's sorted (still deterministic)
// key order.
func formatJSON(body []byte, redactSecrets bool) (string, bool) {
	if !redactSecrets {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err != nil {
			return "", false
		}
		return buf.String(), true
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", false
	}
	decoded = redactJSONValue(decoded)
	out, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return "", false
	}
	return string(out), true
}

// formatForm decodes URL-encoded key/value pairs into a mapping and
// pretty-prints it, so OAuth fields read as plain text rather than
// percent-encoded runs. Repeated keys keep all values, joined the same way
// sanitized headers are.
func formatForm(body []byte, redactSecrets bool) (string, bool) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return "", false
	}

	decoded := make(map[string]string, len(values))
	for key, vals := range values {
		if redactSecrets && isSensitiveBodyField(key) {
			decoded[key] = Redacted
			continue
		}
		decoded[key] = strings.Join(vals, ", ")
	}

	out, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return "", false
	}
	return string(out), true
}

// truncate caps s at limit bytes, appending a marker that states how many
// bytes were dropped. Truncation is never silent.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return fmt.Sprintf("%s...[truncated %d bytes]", s[:limit], len(s)-limit)
}
