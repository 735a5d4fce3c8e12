// Package storage issues presigned S3 URLs so clients move attachment bytes
// directly to and from the bucket.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// DefaultPresignExpiry is how long issued URLs stay valid.
const DefaultPresignExpiry = 15 * time.Minute

// Presigner is the subset of *s3.PresignClient used here.
type Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Storage struct {
	presigner Presigner
	bucket    string
	expiry    time.Duration
	now       func() time.Time
}

func NewS3Storage(p Presigner, bucket string, expiry time.Duration) *S3Storage {
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	return &S3Storage{presigner: p, bucket: bucket, expiry: expiry, now: time.Now}
}

// NewS3StorageFromConfig builds the presign client. A custom endpoint in cfg
// (MinIO, LocalStack) switches to path-style addressing.
func NewS3StorageFromConfig(cfg aws.Config, bucket string) *S3Storage {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.BaseEndpoint != nil
	})
	return NewS3Storage(s3.NewPresignClient(client), bucket, DefaultPresignExpiry)
}

// NewKey returns a unique object key under the task's prefix.
func NewKey(userID, taskID string) string {
	return fmt.Sprintf("users/%s/tasks/%s/%s", userID, taskID, uuid.NewString())
}

// PresignPut returns a URL accepting a single PUT of contentType to key.
func (s *S3Storage) PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error) {
	expires := s.now().Add(s.expiry)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign put: %w", err)
	}
	return req.URL, expires, nil
}

func (s *S3Storage) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
