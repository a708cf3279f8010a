// Package s3 provides a content-addressed store over S3 or any S3-compatible
// service (MinIO, etc.). The object key is the hex sha256 digest of the
// payload, which makes uploads idempotent: re-uploading the same bytes
// overwrites the same key with identical content and returns the same id.
package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/inkwire/publishinghub/pkg/publishing"
)

// Config options for the S3 content store
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	KeyPrefix       string // Optional key prefix, e.g. "articles/"

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool // Create bucket if it doesn't exist
}

// Store is an S3-compatible implementation of the publishing.ContentStore interface
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ publishing.ContentStore = (*Store)(nil)

// New creates a new S3-compatible content store
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Options...)

	store := &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.KeyPrefix,
	}

	if cfg.CreateBucketIfNotExist {
		if err := store.createBucketIfNotExists(context.Background(), cfg.Region); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return store, nil
}

func (s *Store) createBucketIfNotExists(ctx context.Context, region string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) &&
		!strings.Contains(err.Error(), "BadRequest") &&
		!strings.Contains(err.Error(), "NoSuchBucket") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	createInput := &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	}
	if region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}

	_, err = s.client.CreateBucket(ctx, createInput)
	if err != nil {
		if strings.Contains(err.Error(), "BucketAlreadyExists") ||
			strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload stores the bytes under their digest and returns the digest as the
// content id. The payload is buffered to compute the digest before the put;
// article payloads are document-sized, not streaming media.
func (s *Store) Upload(ctx context.Context, r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}

	sum := sha256.Sum256(data)
	cid := hex.EncodeToString(sum[:])

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(cid)),
		Body:   bytes.NewReader(data),
	}
	if name != "" {
		input.Metadata = map[string]string{"file_name": name}
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return cid, nil
}

// Fetch returns a reader over the bytes addressed by contentID.
func (s *Store) Fetch(ctx context.Context, contentID string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(contentID)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("content %s not found", contentID)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return result.Body, nil
}

func (s *Store) objectKey(cid string) string {
	if s.prefix == "" {
		return cid
	}
	return s.prefix + cid
}
