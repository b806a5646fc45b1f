// Package s3 implements the object store gateway over AWS S3.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/polbb/annotations/internal/domain"
)

// API is the slice of the S3 client the gateway needs.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Gateway fetches and stores single objects in one bucket. One-shot
// operations: no retry, no batching, no caching, last write wins.
type Gateway struct {
	client  API
	bucket  string
	tempDir string
	logger  *zap.Logger
}

// New creates a gateway over an existing client.
func New(client API, bucket, tempDir string, logger *zap.Logger) *Gateway {
	return &Gateway{
		client:  client,
		bucket:  bucket,
		tempDir: tempDir,
		logger:  logger,
	}
}

// NewFromEnv creates a gateway using the standard AWS credential discovery
// chain (env vars, shared config, instance role).
func NewFromEnv(ctx context.Context, bucket, region, tempDir string, logger *zap.Logger) (*Gateway, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(s3.NewFromConfig(cfg), bucket, tempDir, logger), nil
}

// Fetch downloads the object at key to a deterministic local path derived
// from the key's base name. The file is left on disk for the caller.
func (g *Gateway) Fetch(ctx context.Context, key string) (string, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", mapError("get object "+key, err)
	}
	defer out.Body.Close()

	localPath := filepath.Join(g.tempDir, path.Base(key))
	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return "", fmt.Errorf("write %s: %v: %w", localPath, err, domain.ErrTransport)
	}

	g.logger.Info("fetched object",
		zap.String("bucket", g.bucket),
		zap.String("key", key),
		zap.String("local_path", localPath),
	)
	return localPath, nil
}

// Store uploads local content to key with the declared content type.
func (g *Gateway) Store(ctx context.Context, key, localPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return mapError("put object "+key, err)
	}

	g.logger.Info("stored object",
		zap.String("bucket", g.bucket),
		zap.String("key", key),
		zap.String("content_type", contentType),
	)
	return nil
}

// mapError folds SDK failures into the domain taxonomy.
func mapError(op string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return fmt.Errorf("%s: %v: %w", op, err, domain.ErrNotFound)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %v: %w", op, err, domain.ErrAccessDenied)
		}
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrTransport)
}
