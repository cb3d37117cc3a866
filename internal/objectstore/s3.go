package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/shelfworks/catalog-service/pkg/logger"
)

// Config holds the connection settings for an S3-compatible endpoint such
// as MinIO. Endpoint may be empty for AWS itself.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	URLExpiry time.Duration
}

// S3Store implements Store against S3 or any compatible service.
type S3Store struct {
	client    *s3.S3
	bucket    string
	urlExpiry time.Duration
	log       *logger.Logger
}

var _ Store = (*S3Store)(nil)

// NewS3Store connects to the configured endpoint. Path-style addressing is
// forced so bucket names never need DNS entries on custom endpoints.
func NewS3Store(cfg Config, log *logger.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: bucket is required")
	}
	if log == nil {
		log = logger.NewDefault("objectstore")
	}

	awsCfg := aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(&awsCfg)
	if err != nil {
		return nil, fmt.Errorf("objectstore: create session: %w", err)
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &S3Store{
		client:    s3.New(sess),
		bucket:    cfg.Bucket,
		urlExpiry: expiry,
		log:       log,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucketWithContext(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) {
			switch aerr.Code() {
			case s3.ErrCodeBucketAlreadyExists, s3.ErrCodeBucketAlreadyOwnedByYou:
				return nil
			}
		}
		return fmt.Errorf("objectstore: create bucket %s: %w", s.bucket, err)
	}

	s.log.WithField("bucket", s.bucket).Info("Created object storage bucket")
	return nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}

	s.log.WithField("bucket", s.bucket).
		WithField("key", key).
		WithField("size", len(data)).
		Debug("Stored object")
	return nil
}

func (s *S3Store) PresignGet(key string) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(s.urlExpiry)
	if err != nil {
		return "", fmt.Errorf("objectstore: presign %s: %w", key, err)
	}
	return url, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") {
			return nil
		}
		return fmt.Errorf("objectstore: delete %s: %w", key, err)
	}
	return nil
}
