// Package storage uploads generated event banners to S3-compatible object
// storage (AWS S3 or Cloudflare R2).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventhub/internal/config"
)

// BannerStore puts objects into one bucket and serves them from PublicURL.
type BannerStore struct {
	client    *s3.Client
	bucket    string
	publicURL string
	log       *zap.Logger
}

// NewBannerStore builds a client from static credentials. A non-empty
// Endpoint switches to path-style addressing against that endpoint.
func NewBannerStore(ctx context.Context, cfg config.ImagesConfig, log *zap.Logger) (*BannerStore, error) {
	if !cfg.Enabled() {
		return nil, errors.New("image hosting is not configured")
	}
	if log == nil {
		log = zap.NewNop()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &BannerStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		log:       log,
	}, nil
}

// Upload stores data under key and returns its public URL.
func (s *BannerStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.log.Debug("banner uploaded", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("bytes", len(data)))
	return s.URL(key), nil
}

// URL is the public address of key.
func (s *BannerStore) URL(key string) string {
	return s.publicURL + "/" + strings.TrimLeft(key, "/")
}

// Delete removes key from the bucket.
func (s *BannerStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
