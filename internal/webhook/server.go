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

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/arbjerg/repod/internal/artifact"
	"github.com/arbjerg/repod/internal/config"
	"github.com/arbjerg/repod/internal/storage"
)

// Fetcher downloads the artifacts of a completed workflow run.
type Fetcher interface {
	Fetch(ctx context.Context, repo *config.Repository, listingURL string) ([]artifact.Downloaded, error)
}

// Store persists downloaded artifacts and answers idempotency queries.
type Store interface {
	Exists(repo *config.Repository, sha string) bool
	Submit(repo *config.Repository, sha string, artifacts []artifact.Downloaded) (storage.Outcome, error)
}

// StatusPublisher reports commit state back to GitHub. Implementations
// are best effort and never return errors.
type StatusPublisher interface {
	PublishPending(ctx context.Context, repo *config.Repository, sha, description string)
	PublishSuccess(ctx context.Context, repo *config.Repository, sha, description, targetURL string)
	PublishFailure(ctx context.Context, repo *config.Repository, sha, description string)
}

// Server handles GitHub webhook requests
type Server struct {
	addr      string
	port      int
	cfg       *config.Config
	fetcher   Fetcher
	store     Store
	statuses  StatusPublisher
	artifacts http.Handler
	logger    *zap.Logger
	zen       *zap.Logger
	server    *http.Server

	// background tracks in-flight ingestion units so tests and
	// shutdown can wait for them.
	background sync.WaitGroup
}

// NewServer creates a new webhook server. artifacts, when non-nil, is
// mounted at "/" to serve the public artifact URLs.
func NewServer(addr string, port int, cfg *config.Config, fetcher Fetcher, store Store, statuses StatusPublisher, artifacts http.Handler, logger *zap.Logger) *Server {
	return &Server{
		addr:      addr,
		port:      port,
		cfg:       cfg,
		fetcher:   fetcher,
		store:     store,
		statuses:  statuses,
		artifacts: artifacts,
		logger:    logger,
		zen:       logger.Named("zen"),
	}
}

// Start starts the webhook server and blocks until ctx is cancelled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.artifacts != nil {
		mux.Handle("/", s.artifacts)
	}

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.addr, s.port),
		Handler: mux,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting webhook server", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server and waits for in-flight
// ingestion units to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down webhook server")
	err := s.server.Shutdown(ctx)
	s.background.Wait()
	return err
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleWebhook handles GitHub webhook requests
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("failed to read request body", zap.Error(err))
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// The event kind comes from a header, so it is known before the
	// body is parsed.
	switch eventType := r.Header.Get("X-GitHub-Event"); eventType {
	case "ping":
		s.handlePing(w, payload)
	case "workflow_run":
		s.handleWorkflowRun(w, payload, r.Header.Get("X-Hub-Signature-256"))
	default:
		s.logger.Debug("ignoring event", zap.String("event", eventType))
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePing logs the zen aphorism GitHub sends on webhook installation
func (s *Server) handlePing(w http.ResponseWriter, payload []byte) {
	var ping PingEvent
	if err := json.Unmarshal(payload, &ping); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	s.zen.Info(ping.Zen)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWorkflowRun(w http.ResponseWriter, payload []byte, signature string) {
	var event WorkflowRunEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Error("failed to parse JSON payload", zap.Error(err))
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Unrecognised repositories are dropped silently. There is no
	// secret to verify against, and a rejection would reveal which
	// repositories are configured.
	repo := s.cfg.FindRepository(event.Repository.Owner.Login, event.Repository.Name)
	if repo == nil {
		s.logger.Info("ignoring webhook from unrecognised repository",
			zap.String("repository", event.Repository.FullName()))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := VerifySignature(payload, signature, repo.Secret); err != nil {
		s.logger.Warn("rejecting webhook with invalid signature",
			zap.String("repository", repo.FullName()),
			zap.Error(err))
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	ctx := context.Background()
	sha := event.WorkflowRun.HeadSHA

	if event.Action != "completed" {
		if event.Action == "requested" && !s.store.Exists(repo, sha) {
			s.statuses.PublishPending(ctx, repo, sha, "Waiting for artifacts")
		}
		s.logger.Info("ignoring workflow_run action",
			zap.String("action", event.Action),
			zap.String("repository", repo.FullName()))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if !s.store.Exists(repo, sha) {
		s.statuses.PublishPending(ctx, repo, sha, "Downloading artifacts")
	}

	s.logger.Info("workflow completed",
		zap.String("repository", repo.FullName()),
		zap.String("sha", sha))

	// Respond before fetching: artifact downloads take far longer than
	// GitHub waits for a webhook response.
	w.WriteHeader(http.StatusAccepted)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.completeRun(repo, event.WorkflowRun)
	}()
}

// completeRun is the background ingestion unit for one completed
// workflow run. It owns its own error boundary: any failure becomes a
// failure status for the commit (unless a previous delivery already
// stored artifacts) and never escapes the goroutine.
func (s *Server) completeRun(repo *config.Repository, run WorkflowRun) {
	ctx := context.Background()

	err := s.ingest(ctx, repo, run)
	if err == nil {
		return
	}

	s.logger.Error("artifact ingestion failed",
		zap.String("repository", repo.FullName()),
		zap.String("sha", run.HeadSHA),
		zap.Error(err))

	// A stale failure must not mask artifacts stored by another
	// delivery for the same commit.
	if !s.store.Exists(repo, run.HeadSHA) {
		s.statuses.PublishFailure(ctx, repo, run.HeadSHA, failureDescription(err))
	}
}

// ingest runs fetch → store → publish for one workflow run.
func (s *Server) ingest(ctx context.Context, repo *config.Repository, run WorkflowRun) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingestion panicked: %v", r)
		}
	}()

	artifacts, err := s.fetcher.Fetch(ctx, repo, run.ArtifactsURL)
	if err != nil {
		return err
	}

	outcome, err := s.store.Submit(repo, run.HeadSHA, artifacts)
	if err != nil {
		artifact.DiscardAll(artifacts)
		return fmt.Errorf("store artifacts: %w", err)
	}

	s.statuses.PublishSuccess(ctx, repo, run.HeadSHA, outcome.Description, outcome.TargetURL)
	return nil
}

// failureDescription renders an ingestion error as a commit status
// description, prefixed with the error's category.
func failureDescription(err error) string {
	var remote *artifact.RemoteError
	var corrupt *artifact.CorruptError
	switch {
	case errors.As(err, &corrupt):
		return "Corrupt artifact: " + corrupt.Error()
	case errors.As(err, &remote):
		return "Remote fetch failed: " + remote.Err.Error()
	default:
		return "Ingestion failed: " + err.Error()
	}
}
