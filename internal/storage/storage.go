// Package storage wraps an S3-compatible object store (Cloudflare R2,
// MinIO, or AWS S3 itself) for downloading input datasets and uploading
// recommendation results, retried with a fixed delay and protected by a
// circuit breaker shared by the download and upload paths.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/lxp-recflow/engine/internal/logging"
)

const (
	maxRetries = 3
	retryDelay = 2 * time.Second
)

// Config describes how to reach the object store.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Client downloads and uploads objects in a single bucket.
type Client struct {
	bucket     string
	s3         *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
	cb         *gobreaker.CircuitBreaker[any]
}

// New builds a Client against cfg, using a static credential provider and
// a custom endpoint resolver so the same code path serves R2, MinIO, or AWS.
func New(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "object-storage",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("object storage circuit breaker state change")
		},
	})

	return &Client{
		bucket:     cfg.Bucket,
		s3:         client,
		downloader: manager.NewDownloader(client),
		uploader:   manager.NewUploader(client),
		cb:         cb,
	}, nil
}

// Download fetches the object at key and returns its full contents,
// retrying up to maxRetries times with a fixed delay on transient errors.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	buf, err := withRetry(ctx, c.cb, "download", key, func() ([]byte, error) {
		w := manager.NewWriteAtBuffer(nil)
		_, err := c.downloader.Download(ctx, w, &s3.GetObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, err
		}
		return w.Bytes(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return buf, nil
}

// Upload writes data to key, retrying up to maxRetries times with a fixed
// delay on transient errors.
func (c *Client) Upload(ctx context.Context, key string, data []byte) error {
	_, err := withRetry(ctx, c.cb, "upload", key, func() ([]byte, error) {
		_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func withRetry(ctx context.Context, cb *gobreaker.CircuitBreaker[any], op, key string, fn func() ([]byte, error)) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, err := cb.Execute(func() (any, error) {
			return fn()
		})
		if err == nil {
			if result == nil {
				return nil, nil
			}
			return result.([]byte), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, err
		}

		lastErr = err
		logging.Ctx(ctx).Warn().Err(err).Str("op", op).Str("key", key).Int("attempt", attempt).
			Msg("object storage operation failed, retrying")

		if attempt < maxRetries {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
