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
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/arbjerg/repod/internal/config"
)

func testRepository(t *testing.T, pattern string) *config.Repository {
	t.Helper()
	repo := &config.Repository{
		Owner:         "arbjerg",
		Name:          "lavalink",
		Secret:        "secret",
		ArtifactRegex: pattern,
		Username:      "arbjerg",
		Token:         "ghp_token",
	}
	if err := repo.CompileArtifactFilter(); err != nil {
		t.Fatalf("compile artifact filter: %v", err)
	}
	return repo
}

// zipWith builds an in-memory zip holding one entry per name/content pair
func zipWith(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// scratchLeftovers lists what is left in the scratch dir
func scratchLeftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// artifactAPI serves a listing plus zip downloads for the given artifacts
func artifactAPI(t *testing.T, zips map[string][]byte) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/artifacts":
			fmt.Fprint(w, `{"artifacts":[`)
			first := true
			for name := range zips {
				if !first {
					fmt.Fprint(w, ",")
				}
				first = false
				fmt.Fprintf(w, `{"name":%q,"url":%q}`, name, server.URL+"/download/"+name)
			}
			fmt.Fprint(w, `]}`)
		default:
			// download endpoints look like /download/<name>/zip
			name := r.URL.Path[len("/download/") : len(r.URL.Path)-len("/zip")]
			payload, ok := zips[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			if user, pass, ok := r.BasicAuth(); !ok || user != "arbjerg" || pass != "ghp_token" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			w.Write(payload)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetch_DownloadsMatchingArtifact(t *testing.T) {
	server := artifactAPI(t, map[string][]byte{
		"Lavalink.jar": zipWith(t, map[string]string{"Lavalink.jar": "jar bytes"}),
	})

	scratch := t.TempDir()
	fetcher := NewFetcher(server.Client(), scratch, zap.NewNop())
	repo := testRepository(t, `Lavalink\.jar`)

	artifacts, err := fetcher.Fetch(context.Background(), repo, server.URL+"/artifacts")
	if err != nil {
		t.Fatalf("Fetch returns error: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("Fetch returns %d artifacts, expected 1", len(artifacts))
	}
	if artifacts[0].OriginalName != "Lavalink.jar" {
		t.Errorf("artifact name is %q, expected Lavalink.jar", artifacts[0].OriginalName)
	}

	content, err := os.ReadFile(artifacts[0].Path)
	if err != nil {
		t.Fatalf("read downloaded artifact: %v", err)
	}
	if string(content) != "jar bytes" {
		t.Errorf("artifact content is %q, expected the decompressed entry", content)
	}

	// Only the extracted content may remain; the intermediate zip is gone.
	if leftovers := scratchLeftovers(t, scratch); len(leftovers) != 1 {
		t.Errorf("scratch dir holds %v, expected only the extracted artifact", leftovers)
	}
}

func TestFetch_FiltersNonMatchingArtifacts(t *testing.T) {
	server := artifactAPI(t, map[string][]byte{
		"coverage-report": zipWith(t, map[string]string{"coverage-report": "html"}),
	})

	scratch := t.TempDir()
	fetcher := NewFetcher(server.Client(), scratch, zap.NewNop())
	repo := testRepository(t, `Lavalink\.jar`)

	artifacts, err := fetcher.Fetch(context.Background(), repo, server.URL+"/artifacts")
	if err != nil {
		t.Fatalf("Fetch returns error: %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("Fetch returns %d artifacts, expected none to match", len(artifacts))
	}
	if leftovers := scratchLeftovers(t, scratch); len(leftovers) != 0 {
		t.Errorf("scratch dir holds %v, expected nothing", leftovers)
	}
}

func TestFetch_EmptyListingIsSuccess(t *testing.T) {
	server := artifactAPI(t, nil)

	fetcher := NewFetcher(server.Client(), t.TempDir(), zap.NewNop())
	repo := testRepository(t, `.*`)

	artifacts, err := fetcher.Fetch(context.Background(), repo, server.URL+"/artifacts")
	if err != nil {
		t.Fatalf("Fetch returns error for empty listing: %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("Fetch returns %d artifacts, expected none", len(artifacts))
	}
}

// TestFetch_MissingZipEntry verifies that a zip without the promised
// entry fails with CorruptError and leaves no scratch files behind
func TestFetch_MissingZipEntry(t *testing.T) {
	server := artifactAPI(t, map[string][]byte{
		"Lavalink.jar": zipWith(t, map[string]string{"something-else": "oops"}),
	})

	scratch := t.TempDir()
	fetcher := NewFetcher(server.Client(), scratch, zap.NewNop())
	repo := testRepository(t, `Lavalink\.jar`)

	_, err := fetcher.Fetch(context.Background(), repo, server.URL+"/artifacts")
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Fetch returns %v, expected CorruptError", err)
	}
	if leftovers := scratchLeftovers(t, scratch); len(leftovers) != 0 {
		t.Errorf("scratch dir holds %v after failure, expected nothing", leftovers)
	}
}

func TestFetch_ListingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(server.Client(), t.TempDir(), zap.NewNop())
	repo := testRepository(t, `.*`)

	_, err := fetcher.Fetch(context.Background(), repo, server.URL+"/artifacts")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Fetch returns %v, expected RemoteError", err)
	}
}

// TestFetch_FailureDiscardsEarlierDownloads verifies that artifacts
// fetched before a later one fails do not leak scratch files
func TestFetch_FailureDiscardsEarlierDownloads(t *testing.T) {
	good := zipWith(t, map[string]string{"a.jar": "a"})
	bad := zipWith(t, map[string]string{"wrong-entry": "b"})

	scratch := t.TempDir()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/artifacts":
			fmt.Fprintf(w, `{"artifacts":[{"name":"a.jar","url":%q},{"name":"b.jar","url":%q}]}`,
				server.URL+"/download/a.jar", server.URL+"/download/b.jar")
		case "/download/a.jar/zip":
			w.Write(good)
		case "/download/b.jar/zip":
			w.Write(bad)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(server.Client(), scratch, zap.NewNop())
	repo := testRepository(t, `[ab]\.jar`)

	_, err := fetcher.Fetch(context.Background(), repo, server.URL+"/artifacts")
	if err == nil {
		t.Fatal("Fetch succeeded, expected failure for the corrupt second artifact")
	}
	if leftovers := scratchLeftovers(t, scratch); len(leftovers) != 0 {
		t.Errorf("scratch dir holds %v after failure, expected nothing", leftovers)
	}
}

func TestFetch_DownloadAuthentication(t *testing.T) {
	server := artifactAPI(t, map[string][]byte{
		"Lavalink.jar": zipWith(t, map[string]string{"Lavalink.jar": "jar"}),
	})

	fetcher := NewFetcher(server.Client(), t.TempDir(), zap.NewNop())
	repo := testRepository(t, `Lavalink\.jar`)
	repo.Token = "wrong-token"

	_, err := fetcher.Fetch(context.Background(), repo, server.URL+"/artifacts")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Fetch returns %v, expected RemoteError for rejected credentials", err)
	}
}
