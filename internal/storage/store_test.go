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
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/arbjerg/repod/internal/artifact"
	"github.com/arbjerg/repod/internal/config"
)

var _ = Describe("Store", func() {
	const (
		sha     = "abcdef1234567890abcdef1234567890abcdef12"
		baseURL = "https://repo.example.com"
	)

	var (
		store *Store
		repo  *config.Repository
	)

	// stage writes content into the scratch dir and returns a
	// Downloaded ready for Submit, the way the fetcher hands them over.
	stage := func(name, content string) artifact.Downloaded {
		f, err := os.CreateTemp(store.ScratchDir(), "artifact-*")
		Expect(err).NotTo(HaveOccurred())
		_, err = f.WriteString(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())
		return artifact.Downloaded{OriginalName: name, Path: f.Name()}
	}

	BeforeEach(func() {
		var err error
		store, err = New(GinkgoT().TempDir(), baseURL, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		repo = &config.Repository{Owner: "arbjerg", Name: "lavalink"}
	})

	Describe("Exists", func() {
		It("is false before any submission", func() {
			Expect(store.Exists(repo, sha)).To(BeFalse())
		})

		It("is true after a submission with at least one artifact", func() {
			_, err := store.Submit(repo, sha, []artifact.Downloaded{stage("build.zip", "bytes")})
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Exists(repo, sha)).To(BeTrue())
		})

		It("stays false after an empty submission", func() {
			_, err := store.Submit(repo, sha, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Exists(repo, sha)).To(BeFalse())
		})

		It("remains true across repeated submissions", func() {
			for i := 0; i < 3; i++ {
				_, err := store.Submit(repo, sha, []artifact.Downloaded{stage("build.zip", "bytes")})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(store.Exists(repo, sha)).To(BeTrue())
		})
	})

	Describe("Submit", func() {
		It("places artifacts under <root>/<storageKey>/<sha8>/<name>", func() {
			_, err := store.Submit(repo, sha, []artifact.Downloaded{stage("build.zip", "bytes")})
			Expect(err).NotTo(HaveOccurred())

			saved := filepath.Join(store.root, "lavalink", "abcdef12", "build.zip")
			Expect(os.ReadFile(saved)).To(Equal([]byte("bytes")))
		})

		It("honours the repository's storage name override", func() {
			repo.StorageName = "lavalink-dev"

			_, err := store.Submit(repo, sha, []artifact.Downloaded{stage("build.zip", "bytes")})
			Expect(err).NotTo(HaveOccurred())

			saved := filepath.Join(store.root, "lavalink-dev", "abcdef12", "build.zip")
			Expect(saved).To(BeAnExistingFile())
		})

		It("reports success with no link when nothing was submitted", func() {
			outcome, err := store.Submit(repo, sha, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Description).To(Equal("No relevant artifacts published"))
			Expect(outcome.TargetURL).To(BeEmpty())
		})

		It("links a single artifact directly", func() {
			outcome, err := store.Submit(repo, sha, []artifact.Downloaded{stage("build.zip", "bytes")})
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Description).To(Equal("Download build.zip"))
			Expect(outcome.TargetURL).To(Equal(baseURL + "/lavalink/abcdef12/build.zip"))
		})

		It("links the bucket for multiple artifacts", func() {
			outcome, err := store.Submit(repo, sha, []artifact.Downloaded{
				stage("build.zip", "a"),
				stage("build-sources.zip", "b"),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Description).To(ContainSubstring("build.zip"))
			Expect(outcome.Description).To(ContainSubstring("build-sources.zip"))
			Expect(outcome.TargetURL).To(Equal(baseURL + "/lavalink/abcdef12/"))
		})

		It("replaces a previously stored artifact of the same name", func() {
			_, err := store.Submit(repo, sha, []artifact.Downloaded{stage("build.zip", "old")})
			Expect(err).NotTo(HaveOccurred())

			_, err = store.Submit(repo, sha, []artifact.Downloaded{stage("build.zip", "new")})
			Expect(err).NotTo(HaveOccurred())

			bucket := filepath.Join(store.root, "lavalink", "abcdef12")
			entries, err := os.ReadDir(bucket)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(os.ReadFile(filepath.Join(bucket, "build.zip"))).To(Equal([]byte("new")))
		})

		It("consumes the scratch files it is given", func() {
			dl := stage("build.zip", "bytes")

			_, err := store.Submit(repo, sha, []artifact.Downloaded{dl})
			Expect(err).NotTo(HaveOccurred())

			Expect(dl.Path).NotTo(BeAnExistingFile())
		})
	})
})
