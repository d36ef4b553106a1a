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

// Command repod runs the artifact ingestion daemon behind
// repo.arbjerg.dev: it ingests build artifacts from GitHub workflow
// runs via webhooks and serves them back over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/arbjerg/repod/internal/artifact"
	"github.com/arbjerg/repod/internal/config"
	"github.com/arbjerg/repod/internal/status"
	"github.com/arbjerg/repod/internal/storage"
	"github.com/arbjerg/repod/internal/webhook"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the configuration file")
	dev := flag.Bool("dev", false, "enable human-readable development logging")
	flag.Parse()

	logger, err := buildLogger(*dev)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	logger.Info("configuration loaded",
		zap.String("path", *configPath),
		zap.Int("repositories", len(cfg.Repositories)))

	store, err := storage.New(cfg.StoragePath, cfg.BaseURL, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}

	// One shared client for listing and zip downloads. The timeout is
	// per request and generous because artifact zips can be large.
	httpClient := &http.Client{Timeout: 10 * time.Minute}
	fetcher := artifact.NewFetcher(httpClient, store.ScratchDir(), logger)
	statuses := status.NewPublisher(logger, "")

	server := webhook.NewServer(
		cfg.Host,
		cfg.Port,
		cfg,
		fetcher,
		store,
		statuses,
		artifactHandler(cfg.StoragePath),
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// artifactHandler serves the public artifact tree. Dot-directories
// (the download scratch area in particular) are not part of the public
// URL scheme and stay hidden.
func artifactHandler(root string) http.Handler {
	fs := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/.") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
