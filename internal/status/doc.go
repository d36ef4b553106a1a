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

// Package status publishes commit statuses to GitHub.
//
// Statuses annotate a commit SHA as pending, success or failure under
// the "repo.arbjerg.dev" context and show up next to the commit in the
// GitHub UI. Publishing is best effort: transient API failures are
// retried a few times with backoff, and anything still failing is
// logged and dropped. The ingestion pipeline never fails because a
// status could not be delivered.
package status
