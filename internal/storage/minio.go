package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"encantia/internal/platform/retry"
)

// bucketRetry covers MinIO still starting up next to the server.
var bucketRetry = retry.Policy{
	MaxAttempts:    6,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// MinIOClient represents a MinIO-backed BlobStore
type MinIOClient struct {
	client    *minio.Client
	publicURL string
}

// NewMinIOClient creates a new MinIO client and makes sure every bucket exists.
// Buckets are created with a public read policy so PublicURL links resolve.
func NewMinIOClient(ctx context.Context, endpoint, accessKey, secretKey string, useSSL bool, publicURL string, buckets ...string) (*MinIOClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	if err := ensureBuckets(ctx, client, clockwork.NewRealClock(), bucketRetry, buckets); err != nil {
		return nil, err
	}

	if publicURL == "" {
		publicURL = client.EndpointURL().String()
	}

	slog.Info("Connected to MinIO", "endpoint", endpoint, "buckets", buckets)
	return &MinIOClient{
		client:    client,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func ensureBuckets(ctx context.Context, client *minio.Client, clock clockwork.Clock, p retry.Policy, buckets []string) error {
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("MinIO not ready, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}
	for _, bucket := range buckets {
		err := retry.DoVoid(ctx, clock, p, classifyBucketError, func() error {
			return ensureBucket(ctx, client, bucket)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// classifyBucketError stops on errors a retry cannot fix.
func classifyBucketError(err error) retry.Action {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return retry.Retry
	}
	switch resp.Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "InvalidBucketName":
		return retry.Stop
	}
	return retry.Retry
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
	if err := client.SetBucketPolicy(ctx, bucket, policy); err != nil {
		return fmt.Errorf("failed to set policy on bucket %s: %w", bucket, err)
	}
	return nil
}

func (m *MinIOClient) Upload(ctx context.Context, bucket, path string, r io.Reader, size int64, opts UploadOptions) error {
	if !opts.Upsert {
		_, err := m.client.StatObject(ctx, bucket, path, minio.StatObjectOptions{})
		if err == nil {
			return ErrObjectExists
		}
		if !isNotFound(err) {
			return fmt.Errorf("failed to stat %s/%s: %w", bucket, path, err)
		}
	}

	_, err := m.client.PutObject(ctx, bucket, path, r, size, minio.PutObjectOptions{
		ContentType: opts.ContentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, path, err)
	}
	return nil
}

func (m *MinIOClient) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", bucket, path, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on the first read.
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, path, err)
	}
	return buf.Bytes(), nil
}

func (m *MinIOClient) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/%s/%s", m.publicURL, url.PathEscape(bucket), escapePath(path))
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
