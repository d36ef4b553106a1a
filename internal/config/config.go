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

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Repository describes one monitored repository. All fields come from
// the configuration file; the compiled artifact filter is attached
// during Load.
type Repository struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`

	// StorageName overrides Name as the on-disk directory and public
	// URL segment. Needed when two owners publish a repository with
	// the same name.
	StorageName string `yaml:"storageName"`

	// Secret is the shared HMAC secret GitHub signs webhook deliveries
	// with.
	Secret string `yaml:"secret"`

	// ArtifactRegex selects which artifact names are downloaded. The
	// expression must match the entire name.
	ArtifactRegex string `yaml:"artifactRegex"`

	// Username and Token authenticate both artifact downloads and
	// commit status updates.
	Username string `yaml:"username"`
	Token    string `yaml:"token"`

	artifactRE *regexp.Regexp
}

// FullName returns "owner/name" for logging.
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// StorageKey returns the directory name artifacts for this repository
// are stored under.
func (r *Repository) StorageKey() string {
	if r.StorageName != "" {
		return r.StorageName
	}
	return r.Name
}

// ArtifactPattern returns the compiled artifact filter.
func (r *Repository) ArtifactPattern() *regexp.Regexp {
	return r.artifactRE
}

// CompileArtifactFilter compiles ArtifactRegex into the anchored
// matcher returned by ArtifactPattern. Load does this for every
// configured repository; repositories constructed in code need to call
// it themselves.
func (r *Repository) CompileArtifactFilter() error {
	// Anchored so the filter selects whole artifact names, not
	// substrings.
	re, err := regexp.Compile(`\A(?:` + r.ArtifactRegex + `)\z`)
	if err != nil {
		return fmt.Errorf("invalid artifactRegex: %w", err)
	}
	r.artifactRE = re
	return nil
}

// Config is the full repod configuration.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	StoragePath  string        `yaml:"storagePath"`
	BaseURL      string        `yaml:"baseUrl"`
	Repositories []*Repository `yaml:"repositories"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{
		Host: "0.0.0.0",
		Port: 8080,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.StoragePath == "" {
		return fmt.Errorf("storagePath is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("baseUrl is required")
	}

	seen := make(map[string]bool, len(c.Repositories))
	for _, repo := range c.Repositories {
		if repo.Owner == "" || repo.Name == "" {
			return fmt.Errorf("repository entries need both owner and name")
		}
		if repo.Secret == "" {
			return fmt.Errorf("repository %s has no secret", repo.FullName())
		}

		key := strings.ToLower(repo.Owner) + "/" + strings.ToLower(repo.Name)
		if seen[key] {
			return fmt.Errorf("repository %s is configured twice", repo.FullName())
		}
		seen[key] = true

		if err := repo.CompileArtifactFilter(); err != nil {
			return fmt.Errorf("repository %s: %w", repo.FullName(), err)
		}
	}

	return nil
}

// FindRepository resolves the (owner, name) pair claimed in a webhook
// payload to a configured repository. The match is case-insensitive.
// A nil result means the repository is not monitored; callers ignore
// such events rather than reporting an error.
func (c *Config) FindRepository(owner, name string) *Repository {
	for _, repo := range c.Repositories {
		if strings.EqualFold(repo.Owner, owner) && strings.EqualFold(repo.Name, name) {
			return repo
		}
	}
	return nil
}
