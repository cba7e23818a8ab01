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
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Encoding identifies how a request body was recognized for formatting.
type Encoding string

// Body encodings in detection order: JSON is tried first, then URL-encoded
// form data, then raw text. Bodies that are not valid UTF-8 are binary.
const (
	EncodingJSON   Encoding = "json"
	EncodingForm   Encoding = "form"
	EncodingRaw    Encoding = "raw"
	EncodingBinary Encoding = "binary"
)

// Classification is the result of inspecting one outbound call. It only
// influences how the call is logged; the call itself is never altered.
type Classification struct {
	IsOAuth      bool
	BodyEncoding Encoding
}

// oauthURLPatterns mark a request as OAuth-related when the lowercased URL
// contains any of them. The set covers the Microsoft identity platform,
// Bot Connector, and Graph endpoints plus generic token/authorize paths.
var oauthURLPatterns = []string{
	"/oauth",
	"/token",
	"/auth",
	"/login",
	"login.microsoftonline.com",
	"api.botframework.com",
	"graph.microsoft.com",
	"/v2.0/token",
	"/common/oauth2",
}

// oauthBodyFields mark a body as OAuth-related when any of them appears as
// a decoded form/JSON field, or as a plain substring of an undecodable body.
var oauthBodyFields = []string{
	"grant_type",
	"client_id",
	"client_secret",
	"access_token",
	"refresh_token",
	"authorization_code",
	"client_credentials",
	"scope",
}

// Classify inspects an outbound call and decides whether it is OAuth
// traffic and how its body is encoded. Three signals are combined, any one
// of which is sufficient: the URL matches a known identity-provider or bot
// API pattern, the Authorization header carries a Bearer token (or a
// form-encoded body targets an OAuth URL), or the body contains
// recognizable OAuth fields.
//
// Detection is best-effort by design. URL matching is substring-based and
// can produce false positives on unusual paths; keeping the predicate pure
// lets those cases be pinned down in tests rather than in the intercept
// path.
func Classify(rawURL string, headers http.Header, body []byte) Classification {
	cls := Classification{BodyEncoding: DetectEncoding(body)}

	// The form-content-type signal only counts alongside a URL match, so it
	// is subsumed by the standalone URL check.
	switch {
	case isOAuthURL(rawURL):
		cls.IsOAuth = true
	case strings.HasPrefix(headers.Get("Authorization"), "Bearer "):
		cls.IsOAuth = true
	case bodyHasOAuthFields(body, cls.BodyEncoding):
		cls.IsOAuth = true
	}
	return cls
}

// isOAuthURL reports whether the URL matches any known OAuth endpoint
// pattern.
func isOAuthURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, pattern := range oauthURLPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// bodyHasOAuthFields checks decoded field names where the body parses as
// form or JSON data, falling back to substring matching for raw text.
// Binary bodies never match.
func bodyHasOAuthFields(body []byte, enc Encoding) bool {
	if len(body) == 0 || enc == EncodingBinary {
		return false
	}

	switch enc {
	case EncodingJSON:
		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err == nil {
			for _, field := range oauthBodyFields {
				if _, ok := decoded[field]; ok {
					return true
				}
			}
			return false
		}
	case EncodingForm:
		if values, err := url.ParseQuery(string(body)); err == nil {
			for _, field := range oauthBodyFields {
				if _, ok := values[field]; ok {
					return true
				}
			}
			return false
		}
	}

	lower := strings.ToLower(string(body))
	for _, field := range oauthBodyFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// DetectEncoding determines how a body should be rendered for logging.
// JSON is preferred, then URL-encoded form data, then raw text; the order
// is a policy choice that keeps log output deterministic. Bodies that are
// not valid UTF-8 (or contain NUL bytes) are treated as binary and never
// decoded as text.
func DetectEncoding(body []byte) Encoding {
	if len(body) == 0 {
		return EncodingRaw
	}
	if !utf8.Valid(body) || strings.ContainsRune(string(body), 0) {
		return EncodingBinary
	}
	if looksLikeJSON(body) {
		return EncodingJSON
	}
	if looksLikeForm(string(body)) {
		return EncodingForm
	}
	return EncodingRaw
}

// looksLikeJSON reports whether body decodes as a JSON object or array.
// Bare JSON scalars are deliberately excluded: a body of "42" or "abc" is
// more usefully logged as raw text.
func looksLikeJSON(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return false
	}
	return json.Valid(body)
}

// looksLikeForm reports whether body parses as application/x-www-form-urlencoded
// key/value pairs. url.ParseQuery is lenient, so require at least one '='
// and reject whitespace outside of percent-encoding to avoid claiming
// arbitrary prose as form data.
func looksLikeForm(body string) bool {
	if !strings.Contains(body, "=") {
		return false
	}
	if strings.ContainsAny(body, " \t\r\n") {
		return false
	}
	_, err := url.ParseQuery(body)
	return err == nil
}
