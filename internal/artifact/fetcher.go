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

package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/arbjerg/repod/internal/config"
)

// Descriptor is one entry of a workflow run's artifact listing.
type Descriptor struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type listing struct {
	Artifacts []Descriptor `json:"artifacts"`
}

// Downloaded is a fetched and unwrapped artifact sitting in a scratch
// file. The storage layer consumes it by moving Path to its permanent
// location; on any downstream failure Discard must be called instead.
type Downloaded struct {
	OriginalName string
	Path         string
}

// Discard removes the scratch file. Safe to call after the file has
// already been moved or removed.
func (d Downloaded) Discard() {
	if d.Path != "" {
		os.Remove(d.Path)
	}
}

// DiscardAll discards every artifact in the slice.
func DiscardAll(artifacts []Downloaded) {
	for _, a := range artifacts {
		a.Discard()
	}
}

// RemoteError reports a failed request to the artifact listing or
// download endpoints.
type RemoteError struct {
	URL string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote fetch of %s failed: %v", e.URL, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// CorruptError reports a downloaded zip that does not contain the
// entry the listing promised.
type CorruptError struct {
	Artifact string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("downloaded zip does not contain %s", e.Artifact)
}

// Fetcher downloads the artifacts of a completed workflow run.
type Fetcher struct {
	http       *http.Client
	scratchDir string
	logger     *zap.Logger
}

// NewFetcher creates a fetcher writing scratch files into scratchDir.
// scratchDir should live on the same filesystem as the artifact store
// so that the final move is an atomic rename.
func NewFetcher(client *http.Client, scratchDir string, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		http:       client,
		scratchDir: scratchDir,
		logger:     logger,
	}
}

// Fetch resolves the artifact listing at listingURL and downloads every
// artifact whose name matches the repository's filter, in listing
// order. An empty result is a normal outcome when nothing matches.
//
// On error, any artifacts downloaded so far are discarded; no scratch
// files are left behind.
func (f *Fetcher) Fetch(ctx context.Context, repo *config.Repository, listingURL string) ([]Downloaded, error) {
	descriptors, err := f.list(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	downloaded := make([]Downloaded, 0, len(descriptors))
	for _, desc := range descriptors {
		if !repo.ArtifactPattern().MatchString(desc.Name) {
			f.logger.Info("ignoring artifact not matching filter",
				zap.String("artifact", desc.Name),
				zap.String("repository", repo.FullName()))
			continue
		}

		dl, err := f.download(ctx, repo, desc)
		if err != nil {
			DiscardAll(downloaded)
			return nil, err
		}
		downloaded = append(downloaded, dl)
	}

	return downloaded, nil
}

// list fetches and parses the artifact listing. The listing endpoint
// is public for public repositories and is queried without
// credentials; only the zip downloads authenticate.
func (f *Fetcher) list(ctx context.Context, listingURL string) ([]Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, &RemoteError{URL: listingURL, Err: err}
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, &RemoteError{URL: listingURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{URL: listingURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, &RemoteError{URL: listingURL, Err: fmt.Errorf("decode listing: %w", err)}
	}

	return l.Artifacts, nil
}

// download fetches one artifact zip and unwraps its single entry into
// a scratch file.
func (f *Fetcher) download(ctx context.Context, repo *config.Repository, desc Descriptor) (Downloaded, error) {
	zipURL := desc.URL + "/zip"
	f.logger.Info("downloading artifact",
		zap.String("artifact", desc.Name),
		zap.String("url", zipURL))

	zipPath, err := f.downloadZip(ctx, repo, zipURL)
	if err != nil {
		return Downloaded{}, err
	}
	// The intermediate zip is never needed after extraction, success
	// or not.
	defer os.Remove(zipPath)

	contentPath, err := f.extract(zipPath, desc.Name)
	if err != nil {
		return Downloaded{}, err
	}

	f.logger.Info("decompressed artifact", zap.String("artifact", desc.Name))
	return Downloaded{OriginalName: desc.Name, Path: contentPath}, nil
}

func (f *Fetcher) downloadZip(ctx context.Context, repo *config.Repository, zipURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, zipURL, nil)
	if err != nil {
		return "", &RemoteError{URL: zipURL, Err: err}
	}
	req.SetBasicAuth(repo.Username, repo.Token)

	resp, err := f.http.Do(req)
	if err != nil {
		return "", &RemoteError{URL: zipURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RemoteError{URL: zipURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	tmp, err := os.CreateTemp(f.scratchDir, "download-*.zip")
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", &RemoteError{URL: zipURL, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close scratch file: %w", err)
	}

	return tmp.Name(), nil
}

// extract streams the zip entry named entryName into a new scratch
// file and returns its path. The entry must match by name; artifact
// zips contain exactly one file named like the artifact, and anything
// else means the download is corrupt.
func (f *Fetcher) extract(zipPath, entryName string) (string, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	var entry *zip.File
	for _, file := range reader.File {
		if file.Name == entryName {
			entry = file
			break
		}
	}
	if entry == nil {
		return "", &CorruptError{Artifact: entryName}
	}

	src, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("open zip entry: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(f.scratchDir, "artifact-*")
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("decompress %s: %w", entryName, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close scratch file: %w", err)
	}

	return dst.Name(), nil
}
