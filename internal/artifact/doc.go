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

// Package artifact downloads build artifacts from a workflow run.
//
// GitHub exposes a run's artifacts through a listing endpoint; each
// entry can then be fetched as a zip stream wrapping exactly one file
// named like the artifact. The fetcher resolves the listing, drops
// entries that do not match the repository's artifact filter, downloads
// the remaining zips with the repository's credentials and unwraps them
// into scratch files.
//
// Scratch files are handed off to the storage layer, which consumes
// them with a rename. The fetcher guarantees that nothing it created
// survives a failed fetch: the intermediate zip is always removed, and
// partially extracted content is removed before the error is returned.
package artifact
