package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"blobdrop/internal/storage"
)

type Options struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string // S3-compatible endpoint, empty for AWS
	PublicBase string // overrides the URL returned for stored objects
}

// Client is the AWS S3 storage.Gateway driver.
type Client struct {
	s3Client   *s3.Client
	bucket     string
	publicBase string
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, storage.ErrNoCredentials
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
		// failures go straight back to the endpoint, which owns the fallback
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		s3Client:   s3Client,
		bucket:     opts.Bucket,
		publicBase: publicBase(opts),
	}, nil
}

// Put uploads the object with a public-read ACL.
func (c *Client) Put(ctx context.Context, obj storage.Object) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(obj.Key),
		Body:          obj.Body,
		ContentLength: aws.Int64(obj.Size),
		ACL:           s3Types.ObjectCannedACLPublicRead,
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}

	if _, err := c.s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", obj.Key, err)
	}
	return c.PublicURL(obj.Key), nil
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	return err
}

func (c *Client) PublicURL(key string) string {
	return storage.JoinURL(c.publicBase, key)
}

// publicBase picks the URL prefix objects are served from: the configured base,
// the path-style endpoint URL, or the virtual-hosted AWS URL.
func publicBase(opts Options) string {
	if opts.PublicBase != "" {
		return opts.PublicBase
	}
	if opts.Endpoint != "" {
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
}
