// Package s3store is an S3-backed docstore.Store.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/docstore"
)

// Config holds configuration for the S3 document store.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string

	// KeyPrefix is prepended to every object key (e.g. "docs/").
	KeyPrefix string

	// ForcePathStyle forces path-style addressing (required for Localstack/MinIO).
	ForcePathStyle bool
}

// Store is an S3-backed implementation of docstore.Store.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// New creates an S3 document store with an existing client.
func New(client *s3.Client, config Config) *Store {
	return &Store{client: client, bucket: config.Bucket, keyPrefix: config.KeyPrefix}
}

// NewFromConfig creates an S3 document store by building an S3 client from config.
func NewFromConfig(ctx context.Context, config Config) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if config.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
		})
	}
	if config.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return New(client, config), nil
}

func (s *Store) objectKey(id uuid.UUID, hmac crypto.HMACDigest) string {
	k := docstore.Key{ID: id, HMAC: hmac}
	return s.keyPrefix + id.String() + "/" + k.Hex()
}

func (s *Store) Insert(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest, data []byte) error {
	key := s.objectKey(id, hmac)
	if existing, ok, err := s.MaybeGet(ctx, id, hmac); err != nil {
		return err
	} else if ok && bytes.Equal(existing, data) {
		return nil
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, error) {
	data, ok, err := s.MaybeGet(ctx, id, hmac)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return data, nil
}

func (s *Store) MaybeGet(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, bool, error) {
	key := s.objectKey(id, hmac)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("s3 get object: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read s3 object body: %w", err)
	}
	return data, true, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) error {
	key := s.objectKey(id, hmac)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "NoSuchKey") ||
		strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "404")
}

var _ docstore.Store = (*Store)(nil)
