// Copyright 2026 The Repod Authors
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

// Package webhook receives GitHub workflow_run events and drives the
// artifact ingestion pipeline.
//
// This package implements an HTTP server that authenticates webhook
// deliveries and, for completed workflow runs, downloads the run's
// build artifacts into permanent storage while reporting progress back
// to GitHub as commit statuses.
//
// Webhook security:
//
// Deliveries for recognised repositories must carry a valid
// X-Hub-Signature-256 header, an HMAC-SHA256 of the raw request body
// keyed with the repository's shared secret. Deliveries failing
// verification are rejected with HTTP 401. Deliveries for repositories
// that are not configured are acknowledged with HTTP 204 and dropped
// without a signature check, so probes cannot tell which repositories
// are monitored.
//
// Event handling:
//
//   - ping: the zen aphorism is logged and the delivery acknowledged.
//   - workflow_run, action "requested": a pending status ("Waiting for
//     artifacts") is published unless the commit already has stored
//     artifacts.
//   - workflow_run, action "completed": the server responds 202
//     immediately and fetches, stores and reports the run's artifacts
//     on a background goroutine. GitHub's webhook timeout is short and
//     artifact downloads are not.
//   - anything else: acknowledged with 204.
//
// The background unit converts every failure (including panics) into a
// failure status for the commit, unless artifacts from an earlier
// delivery already exist. Redelivered events are therefore safe: the
// storage layer's existence check suppresses duplicate pending
// statuses and its replace semantics make a second ingestion
// idempotent in effect.
package webhook
