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
	"testing"
)

func TestClassifyTokenEndpointFormPost(t *testing.T) {
	t.Parallel()

	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	body := []byte("grant_type=client_credentials&client_id=abc&client_secret=xyz&scope=https%3A%2F%2Fapi.botframework.com%2F.default")

	got := Classify("https://login.microsoftonline.com/common/oauth2/v2.0/token", headers, body)

	if !got.IsOAuth {
		t.Error("token endpoint POST not classified as OAuth")
	}
	if got.BodyEncoding != EncodingForm {
		t.Errorf("BodyEncoding = %q, want %q", got.BodyEncoding, EncodingForm)
	}
}

func TestClassifyBearerHeader(t *testing.T) {
	t.Parallel()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer eyJ0eXAi")

	got := Classify("https://example.com/v1.0/me", headers, nil)

	if !got.IsOAuth {
		t.Error("Bearer-authenticated call not classified as OAuth")
	}
}

func TestClassifyBearerSchemeIsCaseSensitive(t *testing.T) {
	t.Parallel()

	headers := http.Header{}
	headers.Set("Authorization", "bearer eyJ0eXAi")

	if got := Classify("https://example.com/v1.0/me", headers, nil); got.IsOAuth {
		t.Error("lowercase bearer scheme should not classify as OAuth")
	}
}

func TestClassifyURLPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		url   string
		oauth bool
	}{
		{"graph host", "https://graph.microsoft.com/v1.0/me", true},
		{"bot connector host", "https://api.botframework.com/v3/conversations", true},
		{"identity platform host", "https://login.microsoftonline.com/common", true},
		{"generic token path", "https://idp.example.com/token", true},
		{"generic oauth path", "https://idp.example.com/oauth/authorize", true},
		{"health endpoint", "https://example.com/health", false},
		{"plain api call", "https://example.com/v1/messages", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tc.url, http.Header{}, nil)
			if got.IsOAuth != tc.oauth {
				t.Fatalf("Classify(%q).IsOAuth = %v, want %v", tc.url, got.IsOAuth, tc.oauth)
			}
		})
	}
}

func TestClassifyBodySignals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		oauth bool
	}{
		{"form grant_type", "grant_type=client_credentials&client_id=abc", true},
		{"json refresh_token", `{"refresh_token":"abc"}`, true},
		{"json unrelated", `{"text":"hello"}`, false},
		{"form unrelated", "q=weather&units=metric", false},
		{"raw mentioning grant_type", "the grant_type parameter is required", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Classify("https://example.com/api", http.Header{}, []byte(tc.body))
			if got.IsOAuth != tc.oauth {
				t.Fatalf("IsOAuth = %v, want %v", got.IsOAuth, tc.oauth)
			}
		})
	}
}

func TestDetectEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body []byte
		want Encoding
	}{
		{"empty", nil, EncodingRaw},
		{"json object", []byte(`{"a":1}`), EncodingJSON},
		{"json array", []byte(`[1,2]`), EncodingJSON},
		{"json preferred over form lookalike", []byte(`{"a":"b=c"}`), EncodingJSON},
		{"form pairs", []byte("a=1&b=2"), EncodingForm},
		{"raw prose", []byte("hello world"), EncodingRaw},
		{"raw scalar json", []byte("42"), EncodingRaw},
		{"binary nul", []byte{0x00, 0x01, 0x02}, EncodingBinary},
		{"binary invalid utf8", []byte{0xff, 0xfe, 0xfd}, EncodingBinary},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectEncoding(tc.body); got != tc.want {
				t.Fatalf("DetectEncoding = %q, want %q", got, tc.want)
			}
		})
	}
}
