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

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/arbjerg/repod/internal/artifact"
	"github.com/arbjerg/repod/internal/config"
)

// scratchDirName holds in-flight downloads under the storage root so
// the final move into a bucket is a same-filesystem rename.
const scratchDirName = ".incoming"

// Outcome describes the commit status a completed submission deserves.
// The store reports what happened; publishing it is the caller's
// concern.
type Outcome struct {
	Description string
	TargetURL   string
}

// Store manages the on-disk artifact tree.
type Store struct {
	root    string
	baseURL string
	logger  *zap.Logger
}

// New creates the storage root (and its scratch directory) if needed
// and returns a store publishing URLs under baseURL.
func New(root, baseURL string, logger *zap.Logger) (*Store, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create storage root: %w", err)
		}
		logger.Info("created storage root", zap.String("path", root))
	} else {
		logger.Info("using storage root", zap.String("path", root))
	}

	scratch := filepath.Join(root, scratchDirName)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	return &Store{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}, nil
}

// ScratchDir returns the directory downloads should be staged in.
func (s *Store) ScratchDir() string {
	return filepath.Join(s.root, scratchDirName)
}

// Exists reports whether the commit bucket for (repo, sha) holds at
// least one artifact. It is an idempotency signal, not a lock: it
// tells a redelivered webhook that the commit was already ingested.
func (s *Store) Exists(repo *config.Repository, sha string) bool {
	entries, err := os.ReadDir(s.bucketDir(repo, sha))
	return err == nil && len(entries) > 0
}

// Submit moves the downloaded artifacts into the commit bucket and
// returns the status outcome describing the result. Existing files of
// the same name are replaced.
func (s *Store) Submit(repo *config.Repository, sha string, artifacts []artifact.Downloaded) (Outcome, error) {
	bucket := s.bucketDir(repo, sha)
	if err := os.MkdirAll(bucket, 0o755); err != nil {
		return Outcome{}, fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		dest := filepath.Join(bucket, a.OriginalName)
		if err := os.Rename(a.Path, dest); err != nil {
			return Outcome{}, fmt.Errorf("move artifact into place: %w", err)
		}
		s.logger.Info("saved artifact", zap.String("path", dest))
		names = append(names, a.OriginalName)
	}

	return s.outcome(repo, sha, names), nil
}

func (s *Store) outcome(repo *config.Repository, sha string, names []string) Outcome {
	bucketURL := s.baseURL + "/" + repo.StorageKey() + "/" + bucketKey(sha) + "/"
	switch len(names) {
	case 0:
		return Outcome{Description: "No relevant artifacts published"}
	case 1:
		return Outcome{
			Description: "Download " + names[0],
			TargetURL:   bucketURL + names[0],
		}
	default:
		return Outcome{
			Description: "Artifacts: " + strings.Join(names, ", "),
			TargetURL:   bucketURL,
		}
	}
}

func (s *Store) bucketDir(repo *config.Repository, sha string) string {
	return filepath.Join(s.root, repo.StorageKey(), bucketKey(sha))
}

// bucketKey truncates a commit SHA to the 8-character bucket prefix.
func bucketKey(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
