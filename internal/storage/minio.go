package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioGateway stores blobs in MinIO or any S3-compatible service that speaks
// bucket policies. Objects become public through a bucket-wide read policy.
type MinioGateway struct {
	client     *minio.Client
	bucket     string
	publicBase string

	mu    sync.Mutex
	ready bool
}

// NewMinioGateway creates the client without contacting the server. The bucket
// and its public-read policy are set up on first use. endpoint is host[:port]
// without a scheme.
func NewMinioGateway(ctx context.Context, endpoint, accessKey, secretKey, bucket, publicBase string, useSSL bool) (*MinioGateway, error) {
	if accessKey == "" || secretKey == "" {
		return nil, ErrNoCredentials
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if publicBase == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicBase = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}

	return &MinioGateway{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// ensureBucket creates the bucket if needed and applies the public-read policy.
// A failed attempt is retried on the next call.
func (g *MinioGateway) ensureBucket(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ready {
		return nil
	}

	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %q: %w", g.bucket, err)
		}
	}

	if err := g.client.SetBucketPolicy(ctx, g.bucket, publicReadPolicy(g.bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}

	g.ready = true
	return nil
}

func (g *MinioGateway) Put(ctx context.Context, obj Object) (string, error) {
	if err := g.ensureBucket(ctx); err != nil {
		return "", err
	}

	_, err := g.client.PutObject(ctx, g.bucket, obj.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", obj.Key, err)
	}
	return g.PublicURL(obj.Key), nil
}

// Ping prepares the bucket, so a reachable server is ready for the first Put.
func (g *MinioGateway) Ping(ctx context.Context) error {
	return g.ensureBucket(ctx)
}

// PublicURL returns the browser-accessible URL for key.
func (g *MinioGateway) PublicURL(key string) string {
	return joinURL(g.publicBase, key)
}

// joinURL appends an object key to a base URL, escaping each key segment.
func joinURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

// JoinURL is joinURL for drivers outside this package.
func JoinURL(base, key string) string {
	return joinURL(base, key)
}

// publicReadPolicy allows anonymous GET on every object in bucket.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": map[string]interface{}{"AWS": []string{"*"}},
				"Action":    []string{"s3:GetObject"},
				"Resource":  []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucket)},
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
