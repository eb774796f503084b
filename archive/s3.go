package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for the S3 archive backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// s3API is the subset of the S3 client the store uses. Narrowed for
// test injection.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store archives artifacts to an S3 bucket.
// Uses the AWS SDK default credential chain (env vars, shared config,
// IAM role).
type S3Store struct {
	client s3API
	config S3Config
}

// NewS3Store creates an S3-backed archive store.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		config: cfg,
	}, nil
}

// newS3StoreWithClient creates a store with an injected client for tests.
func newS3StoreWithClient(client s3API, cfg S3Config) *S3Store {
	return &S3Store{client: client, config: cfg}
}

// Put uploads the artifact and returns its s3:// location.
func (s *S3Store) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	key := name
	if s.config.Prefix != "" {
		key = path.Join(s.config.Prefix, name)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.config.Bucket,
		Key:    &key,
		Body:   r,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, key), nil
}
