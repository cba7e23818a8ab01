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
	"net/http"
	"strings"
)

// Redacted is the marker substituted for every sensitive header or body
// field value before it reaches log output.
const Redacted = "[REDACTED]"

// sensitiveHeaderNames lists headers redacted by exact (case-insensitive)
// name match.
var sensitiveHeaderNames = map[string]struct{}{
	"authorization": {},
	"set-cookie":    {},
	"cookie":        {},
	"x-api-key":     {},
}

// sensitiveHeaderSubstrings lists fragments that mark any header containing
// them as sensitive, regardless of the rest of the name.
var sensitiveHeaderSubstrings = []string{"token", "secret", "password", "key"}

// IsSensitiveHeader reports whether a header name should be redacted.
// Matching is case-insensitive: the name is sensitive when it equals one of
// the denylisted names or contains any of the sensitive substrings.
func IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := sensitiveHeaderNames[lower]; ok {
		return true
	}
	for _, fragment := range sensitiveHeaderSubstrings {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// SanitizeHeaders returns a flattened copy of headers with sensitive values
// replaced by [Redacted]. Multi-valued headers are joined with ", " the way
// they would appear on the wire. The input is never mutated; callers hand
// the original headers to the real transport untouched.
//
// Sanitizing an already-sanitized mapping is a no-op: sensitive keys map to
// the marker either way, so the operation is idempotent.
func SanitizeHeaders(headers http.Header) map[string]string {
	sanitized := make(map[string]string, len(headers))
	for key, values := range headers {
		if IsSensitiveHeader(key) {
			sanitized[key] = Redacted
			continue
		}
		sanitized[key] = strings.Join(values, ", ")
	}
	return sanitized
}

// sensitiveBodyFields lists body field names redacted by exact match when
// body secret redaction is enabled.
var sensitiveBodyFields = map[string]struct{}{
	"client_secret":    {},
	"client_assertion": {},
	"assertion":        {},
	"password":         {},
	"access_token":     {},
	"refresh_token":    {},
	"id_token":         {},
}

// isSensitiveBodyField reports whether a decoded body field carries a
// credential. It mirrors the header policy but drops the bare "key"
// substring, which is far too common in body payloads to treat as secret.
func isSensitiveBodyField(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := sensitiveBodyFields[lower]; ok {
		return true
	}
	return strings.Contains(lower, "token") ||
		strings.Contains(lower, "secret") ||
		strings.Contains(lower, "password")
}

// redactJSONValue walks a decoded JSON document, replacing the values of
// sensitive object fields with the redaction marker. It operates on the
// decoded copy only, never on caller-owned data.
func redactJSONValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, item := range typed {
			if isSensitiveBodyField(key) {
				typed[key] = Redacted
				continue
			}
			typed[key] = redactJSONValue(item)
		}
		return typed
	case []any:
		for i, item := range typed {
			typed[i] = redactJSONValue(item)
		}
		return typed
	default:
		return value
	}
}
