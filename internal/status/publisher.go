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

package status

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v66/github"
	"go.uber.org/zap"

	"github.com/arbjerg/repod/internal/config"
)

// Context is the status context label all repod statuses publish under.
const Context = "repo.arbjerg.dev"

// GitHub rejects status descriptions longer than 140 characters.
const maxDescriptionLength = 140

// State is a commit status state.
type State string

const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateFailure State = "failure"
)

// Publisher sends commit statuses using each repository's own
// credentials.
type Publisher struct {
	logger  *zap.Logger
	baseURL string

	mu      sync.Mutex
	clients map[string]*github.Client

	maxRetries     int
	initialBackoff time.Duration
}

// NewPublisher creates a publisher. baseURL overrides the GitHub API
// endpoint and is empty outside tests.
func NewPublisher(logger *zap.Logger, baseURL string) *Publisher {
	return &Publisher{
		logger:         logger,
		baseURL:        baseURL,
		clients:        make(map[string]*github.Client),
		maxRetries:     3,
		initialBackoff: 100 * time.Millisecond,
	}
}

// PublishPending marks the commit as pending.
func (p *Publisher) PublishPending(ctx context.Context, repo *config.Repository, sha, description string) {
	p.publish(ctx, repo, sha, StatePending, description, "")
}

// PublishSuccess marks the commit as successful, optionally linking to
// the stored artifacts.
func (p *Publisher) PublishSuccess(ctx context.Context, repo *config.Repository, sha, description, targetURL string) {
	p.publish(ctx, repo, sha, StateSuccess, description, targetURL)
}

// PublishFailure marks the commit as failed.
func (p *Publisher) PublishFailure(ctx context.Context, repo *config.Repository, sha, description string) {
	p.publish(ctx, repo, sha, StateFailure, description, "")
}

// publish sends one status update. Errors are logged and swallowed;
// status reporting never propagates failure into the pipeline.
func (p *Publisher) publish(ctx context.Context, repo *config.Repository, sha string, state State, description, targetURL string) {
	if len(description) > maxDescriptionLength {
		description = description[:maxDescriptionLength]
	}

	repoStatus := &github.RepoStatus{
		State:       github.String(string(state)),
		Description: github.String(description),
		Context:     github.String(Context),
	}
	if targetURL != "" {
		repoStatus.TargetURL = github.String(targetURL)
	}

	client := p.clientFor(repo)
	err := p.executeWithRetry(ctx, func() error {
		_, _, err := client.Repositories.CreateStatus(ctx, repo.Owner, repo.Name, sha, repoStatus)
		return err
	})
	if err != nil {
		p.logger.Error("failed to publish commit status",
			zap.String("repository", repo.FullName()),
			zap.String("sha", sha),
			zap.String("state", string(state)),
			zap.Error(err))
		return
	}

	p.logger.Info("published commit status",
		zap.String("repository", repo.FullName()),
		zap.String("sha", sha),
		zap.String("state", string(state)),
		zap.String("description", description))
}

// clientFor returns (building on first use) the API client
// authenticated as the repository's configured user.
func (p *Publisher) clientFor(repo *config.Repository) *github.Client {
	key := strings.ToLower(repo.FullName())

	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[key]; ok {
		return client
	}

	transport := &github.BasicAuthTransport{
		Username: repo.Username,
		Password: repo.Token,
	}
	client := github.NewClient(transport.Client())
	if p.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(p.baseURL, "/") + "/")
		if err == nil {
			client.BaseURL = base
		}
	}

	p.clients[key] = client
	return client
}

// executeWithRetry retries transient API failures with exponential
// backoff. Client errors are returned immediately.
func (p *Publisher) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	backoff := p.initialBackoff

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) || attempt == p.maxRetries {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return lastErr
}

// isRetryable reports whether an API error is worth retrying.
func isRetryable(err error) bool {
	ghErr, ok := err.(*github.ErrorResponse)
	if !ok || ghErr.Response == nil {
		// Transport-level errors (connection reset, timeouts) are
		// transient more often than not.
		return true
	}

	switch ghErr.Response.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
