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

// Package storage persists downloaded artifacts on disk.
//
// Artifacts live at
//
//	<root>/<storageKey>/<sha[:8]>/<originalName>
//
// which is also the shape of the public download URLs. Files are moved
// into place with a rename from a scratch directory on the same
// filesystem, so a partially written artifact is never visible at its
// final path. A re-delivered completion event for the same commit
// overwrites files of the same name instead of duplicating them, which
// is what makes webhook redelivery safe.
//
// Known limitation: the bucket key is the first 8 hex characters of the
// commit SHA, so two commits sharing that prefix share a bucket. The
// truncation is kept because every published URL depends on it.
//
// Directories are created on demand and never removed.
package storage
