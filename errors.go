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

import "errors"

// ErrTransportReplaced is returned by [DisableHTTPLogging] when
// http.DefaultTransport no longer holds the transport this package
// installed. Restoring the saved original would clobber whatever replaced
// it, so the conflict is surfaced instead of silently leaving the process
// in an unknown state.
var ErrTransportReplaced = errors.New("httpscope: http.DefaultTransport was replaced while logging was enabled")
