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
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// DefaultChannel is the named log channel outbound HTTP records are
// written to. External logging configuration attaches handlers and levels
// to it; this package only owns the channel name and message shapes.
const DefaultChannel = "OutgoingHTTP"

// defaultBodyLimit caps raw-text body output before the truncation marker
// is applied.
const defaultBodyLimit = 4096

// Option configures a [Transport] or the process-wide logging installed by
// [EnableHTTPLogging]. It follows the functional options pattern.
type Option func(*config)

// SkipFunc decides whether a request bypasses logging entirely. Returning
// true forwards the request to the base transport with no records emitted.
type SkipFunc func(*http.Request) bool

// config holds the resolved settings for a logging transport.
type config struct {
	logger            *slog.Logger
	channel           string
	redactBodySecrets bool
	bodyLimit         int
	propagateTrace    bool
	enableOTel        bool
	skip              SkipFunc
	skipHosts         []string
	newID             func() string
}

// defaultConfig returns the zero configuration used before environment
// variables and functional options are applied.
func defaultConfig() *config {
	return &config{
		channel:           DefaultChannel,
		redactBodySecrets: true,
		bodyLimit:         defaultBodyLimit,
		propagateTrace:    true,
		newID:             NewRequestID,
	}
}

// loadConfigFromEnv overlays settings from the process environment.
// Invalid values are ignored so functional options can supply overrides
// without additional error handling.
func loadConfigFromEnv(cfg *config) {
	if raw, ok := os.LookupEnv("HTTPSCOPE_LOG_CHANNEL"); ok {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			cfg.channel = trimmed
		}
	}
	if raw, ok := os.LookupEnv("HTTPSCOPE_REDACT_BODY_SECRETS"); ok {
		if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			cfg.redactBodySecrets = v
		}
	}
	if raw, ok := os.LookupEnv("HTTPSCOPE_BODY_LIMIT"); ok {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && v >= 0 {
			cfg.bodyLimit = v
		}
	}
	if raw, ok := os.LookupEnv("HTTPSCOPE_DISABLE_TRACE"); ok {
		if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			cfg.propagateTrace = !v
		}
	}
	if raw, ok := os.LookupEnv("HTTPSCOPE_SKIP_HOSTS"); ok {
		cfg.skipHosts = splitAndClean(raw)
	}
}

// applyOptions resolves defaults, environment variables, and functional
// options, in that order.
func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	loadConfigFromEnv(cfg)
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// channelLogger derives the logger records are written to. A nil configured
// logger falls back to slog.Default so the channel works out of the box.
func (c *config) channelLogger() *slog.Logger {
	base := c.logger
	if base == nil {
		base = slog.Default()
	}
	return base.With(slog.String("logger", c.channel))
}

// WithLogger sets the base logger records are emitted through. By default
// records go to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithChannel overrides the named log channel attached to every record.
func WithChannel(name string) Option {
	return func(c *config) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			c.channel = trimmed
		}
	}
}

// WithBodySecretRedaction controls whether credential fields inside logged
// request bodies (client_secret, refresh_token, and similar) are replaced
// with the redaction marker. Enabled by default; disabling restores the
// legacy behavior of logging token-exchange bodies verbatim.
func WithBodySecretRedaction(redact bool) Option {
	return func(c *config) { c.redactBodySecrets = redact }
}

// WithBodyLimit caps logged raw-text bodies at limit bytes. Zero disables
// truncation; negative values are clamped to zero.
func WithBodyLimit(limit int) Option {
	if limit < 0 {
		limit = 0
	}
	return func(c *config) { c.bodyLimit = limit }
}

// WithTracePropagation enables or disables W3C traceparent injection on
// outbound requests (default: enabled).
func WithTracePropagation(on bool) Option {
	return func(c *config) { c.propagateTrace = on }
}

// WithOTelTransport composes an otelhttp transport under the logging
// decorator so spans cover the real dispatch while logging observes the
// request first.
func WithOTelTransport(on bool) Option {
	return func(c *config) { c.enableOTel = on }
}

// WithSkip sets a predicate that exempts requests from logging, e.g.
// health probes or high-volume polling endpoints.
func WithSkip(f SkipFunc) Option {
	return func(c *config) { c.skip = f }
}

// WithSkipHosts exempts requests to the named hosts from logging. Matching
// is case-insensitive against the request URL's hostname.
func WithSkipHosts(hosts ...string) Option {
	cleaned := make([]string, 0, len(hosts))
	for _, host := range hosts {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		cleaned = append(cleaned, strings.ToLower(host))
	}
	return func(c *config) { c.skipHosts = cleaned }
}

// WithRequestIDGenerator replaces the request-id generator. Intended for
// tests that need deterministic correlation identifiers.
func WithRequestIDGenerator(f func() string) Option {
	return func(c *config) {
		if f != nil {
			c.newID = f
		}
	}
}

// shouldSkip reports whether logging is bypassed for req.
func (c *config) shouldSkip(req *http.Request) bool {
	if c.skip != nil && c.skip(req) {
		return true
	}
	if len(c.skipHosts) == 0 || req.URL == nil {
		return false
	}
	host := strings.ToLower(req.URL.Hostname())
	for _, skip := range c.skipHosts {
		if host == skip {
			return true
		}
	}
	return false
}

// splitAndClean normalises comma-separated configuration strings into a
// slice of trimmed, non-empty values.
func splitAndClean(input string) []string {
	parts := strings.Split(input, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cleaned = append(cleaned, strings.ToLower(part))
	}
	return cleaned
}
