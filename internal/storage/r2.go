// Package storage persists collected voice recordings in S3-compatible
// object storage (Cloudflare R2 in the reference deployment).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/renan-b-eth/curumim-backend-telegram/internal/config"
)

// ErrUpload marks failures persisting audio. Callers report these to the user
// and keep the session where it is.
var ErrUpload = errors.New("audio upload failed")

// Uploader stores a blob under key and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, key, contentType string) (publicURL string, err error)
}

type R2Client struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	timeout       time.Duration
}

// NewR2Client connects to the S3-compatible endpoint in cfg. Credentials must
// be complete; callers should check cfg.Complete() first and degrade (log a
// warning, leave the uploader nil) rather than fail at runtime.
func NewR2Client(cfg config.StorageConfig, timeout time.Duration) (*R2Client, error) {
	if !cfg.Complete() {
		return nil, fmt.Errorf("incomplete object-storage credentials")
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(cfg.Endpoint), "https://"), "http://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: true,
		Region: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}

	return &R2Client{
		client:        cl,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		timeout:       timeout,
	}, nil
}

func (c *R2Client) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: key is required", ErrUpload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %q: %v", ErrUpload, key, err)
	}

	return c.publicBaseURL + "/" + c.bucket + "/" + key, nil
}
