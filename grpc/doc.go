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

// Package grpc applies httpscope's correlated call logging to unary gRPC
// client calls. [NewUnaryClientInterceptor] emits the same framed
// request/response/error records as the HTTP transport (one correlation
// id per call, redacted outgoing metadata, elapsed time, and the final
// status code) without altering the RPC's outcome.
//
//	conn, err := grpc.NewClient(target,
//	    grpc.WithUnaryInterceptor(scopegrpc.NewUnaryClientInterceptor(
//	        scopegrpc.WithLogger(logger),
//	    )),
//	)
//
// Request payloads are rendered with protojson when payload logging is
// enabled; response payloads are never logged, mirroring the HTTP side's
// response-body policy.
package grpc
