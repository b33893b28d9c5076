// Package main is the entry point for the recommendation engine server.
//
// # Application Architecture
//
// Initialization proceeds in this order:
//
//  1. Configuration  - Koanf layering: defaults -> optional YAML file -> env vars
//  2. Logging        - zerolog, level/format driven by configuration
//  3. Object storage  - S3-compatible client for dataset download / result upload
//  4. Idempotency store - BadgerDB, guards batch_id against double-processing
//  5. Job queue      - Watermill gochannel by default, NATS JetStream with the
//     "nats" build tag
//  6. Job driver     - wires storage/loader/callback/idempotency into the
//     per-batch pipeline runner, subscribed to the job queue
//  7. HTTP server    - chi router exposing the trigger endpoint, health
//     checks, and Prometheus metrics
//
// # Build Tags
//
// The default build uses the in-process gochannel job queue, which does not
// survive a process restart:
//
//	go build ./cmd/server
//
// A durable, multi-replica NATS JetStream backend is available behind the
// "nats" build tag:
//
//	go build -tags nats ./cmd/server
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the HTTP
// listener stops accepting new connections, in-flight requests are given
// cfg.Server.ShutdownTimeout to complete, the job queue is closed, and the
// idempotency store is flushed to disk before exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lxp-recflow/engine/internal/api"
	"github.com/lxp-recflow/engine/internal/callback"
	"github.com/lxp-recflow/engine/internal/config"
	"github.com/lxp-recflow/engine/internal/idempotency"
	"github.com/lxp-recflow/engine/internal/job"
	"github.com/lxp-recflow/engine/internal/jobqueue"
	"github.com/lxp-recflow/engine/internal/loader"
	"github.com/lxp-recflow/engine/internal/logging"
	"github.com/lxp-recflow/engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("s3_bucket", cfg.S3.Bucket).
		Str("jobqueue_backend", cfg.JobQueue.Backend).
		Int("default_top_k", cfg.Pipeline.DefaultTopK).
		Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageClient, err := storage.New(ctx, storage.Config{
		Endpoint:        cfg.S3.Endpoint,
		Region:          cfg.S3.Region,
		Bucket:          cfg.S3.Bucket,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		UsePathStyle:    cfg.S3.UsePathStyle,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize object storage client")
	}

	idempotencyStore, err := idempotency.Open(cfg.Idempotency.Path, cfg.Idempotency.TTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open idempotency store")
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing idempotency store")
		}
	}()

	queue, err := newJobQueue(cfg.JobQueue)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize job queue")
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing job queue")
		}
	}()

	driver := &job.Driver{
		Storage:     storageClient,
		Loader:      loader.New(),
		Callback: callback.New(callback.Config{
			Timeout:       cfg.Callback.Timeout,
			MaxRetries:    cfg.Callback.MaxRetries,
			RetryDelay:    cfg.Callback.RetryDelay,
			BreakerTrips:  cfg.Callback.BreakerTrips,
			RatePerSecond: cfg.Callback.RatePerSecond,
			RateBurst:     cfg.Callback.RateBurst,
		}),
		Idempotency: idempotencyStore,
		DefaultTopK: cfg.Pipeline.DefaultTopK,
		ChunkSize:   cfg.Pipeline.ChunkSize,
		Penalty:     cfg.Pipeline.PenaltyWeights,
	}

	subscriberErrCh := make(chan error, 1)
	go func() {
		logging.Info().Msg("job queue subscriber starting")
		subscriberErrCh <- queue.Subscribe(ctx, driver.Handle)
	}()

	handler := api.NewHandler(queue, idempotencyStore, cfg.Pipeline.DefaultTopK)
	router := api.NewRouter(handler, cfg.Server.RateLimitReqs, cfg.Server.RateLimitWindow)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-serverErrCh:
		if err != nil {
			logging.Error().Err(err).Msg("HTTP server failed")
		}
	case err := <-subscriberErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("job queue subscriber failed")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server did not shut down cleanly")
	}

	logging.Info().Msg("server stopped")
}

// newJobQueue selects the job queue backend named by cfg.Backend. The nats
// backend is only functional when the binary is built with -tags nats; the
// stub build returns an error instead of silently falling back.
func newJobQueue(cfg config.JobQueueConfig) (jobqueue.Queue, error) {
	switch cfg.Backend {
	case "", "gochannel":
		return jobqueue.NewGoChannel(), nil
	case "nats":
		return jobqueue.NewNATSQueue(jobqueue.NATSConfig{
			URL:              cfg.NATSURL,
			DurableName:      "recflow",
			QueueGroup:       "recflow-workers",
			SubscribersCount: cfg.Subscribers,
		})
	default:
		return nil, fmt.Errorf("unknown jobqueue backend %q", cfg.Backend)
	}
}
