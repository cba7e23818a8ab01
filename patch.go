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
	"sync"
)

// patchState is the process-wide record of the installed default-transport
// wrapper. At most one original reference is retained while patched;
// enable and disable race only on this struct and are serialized by its
// mutex.
type patchState struct {
	mu        sync.Mutex
	original  http.RoundTripper
	installed http.RoundTripper
	logger    *slog.Logger
}

var globalPatch patchState

// EnableHTTPLogging wraps http.DefaultTransport in a logging [Transport]
// so every client using the default transport (including http.Get and
// friends) emits correlated request/response/error records. Calling it
// while already enabled is a no-op; the transport is never double-wrapped.
//
// Construction-time composition via [Transport] is preferable when the
// client is under your control; this entry point exists for host
// applications whose HTTP stack cannot be re-plumbed.
func EnableHTTPLogging(opts ...Option) error {
	globalPatch.mu.Lock()
	defer globalPatch.mu.Unlock()

	if globalPatch.original != nil {
		return nil
	}

	cfg := applyOptions(opts)
	globalPatch.original = http.DefaultTransport
	globalPatch.installed = Transport(http.DefaultTransport, opts...)
	globalPatch.logger = cfg.channelLogger()
	http.DefaultTransport = globalPatch.installed

	globalPatch.logger.LogAttrs(context.Background(), slog.LevelInfo,
		"HTTP request/response logging enabled")
	return nil
}

// DisableHTTPLogging restores the transport saved by [EnableHTTPLogging].
// Calling it while not enabled is a no-op. If http.DefaultTransport was
// replaced by someone else in the meantime, the restore is impossible and
// [ErrTransportReplaced] is returned; the foreign transport is left in
// place.
func DisableHTTPLogging() error {
	globalPatch.mu.Lock()
	defer globalPatch.mu.Unlock()

	if globalPatch.original == nil {
		return nil
	}

	if http.DefaultTransport != globalPatch.installed {
		return ErrTransportReplaced
	}

	http.DefaultTransport = globalPatch.original
	logger := globalPatch.logger
	globalPatch.original = nil
	globalPatch.installed = nil
	globalPatch.logger = nil

	logger.LogAttrs(context.Background(), slog.LevelInfo,
		"HTTP request/response logging disabled")
	return nil
}
