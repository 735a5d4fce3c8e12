package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	err     error
	put     *s3.PutObjectInput
	get     *s3.GetObjectInput
	expires time.Duration
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	var o s3.PresignOptions
	for _, fn := range optFns {
		fn(&o)
	}
	f.expires = o.Expires
	return &v4.PresignedHTTPRequest{URL: "https://s3.local/put/" + aws.ToString(in.Key), Method: "PUT"}, nil
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.get = in
	return &v4.PresignedHTTPRequest{URL: "https://s3.local/get/" + aws.ToString(in.Key), Method: "GET"}, nil
}

func TestPresignPut(t *testing.T) {
	fp := &fakePresigner{}
	s := NewS3Storage(fp, "attachments", 5*time.Minute)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	url, exp, err := s.PresignPut(context.Background(), "k1", "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "https://s3.local/put/k1", url)
	assert.Equal(t, fixed.Add(5*time.Minute), exp)
	assert.Equal(t, "attachments", aws.ToString(fp.put.Bucket))
	assert.Equal(t, "text/plain", aws.ToString(fp.put.ContentType))
	assert.Equal(t, 5*time.Minute, fp.expires)
}

func TestPresignGet(t *testing.T) {
	fp := &fakePresigner{}
	s := NewS3Storage(fp, "attachments", 0)

	url, err := s.PresignGet(context.Background(), "k2")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.local/get/k2", url)
	assert.Equal(t, DefaultPresignExpiry, s.expiry)
}

func TestPresign_Errors(t *testing.T) {
	s := NewS3Storage(&fakePresigner{err: errors.New("no creds")}, "b", time.Minute)

	_, _, err := s.PresignPut(context.Background(), "k", "x")
	assert.ErrorContains(t, err, "presign put")

	_, err = s.PresignGet(context.Background(), "k")
	assert.ErrorContains(t, err, "presign get")
}

func TestNewKey(t *testing.T) {
	a := NewKey("u-1", "t-1")
	b := NewKey("u-1", "t-1")

	assert.True(t, strings.HasPrefix(a, "users/u-1/tasks/t-1/"))
	assert.NotEqual(t, a, b)
}

func TestNewS3StorageFromConfig(t *testing.T) {
	cfg := aws.Config{Region: "us-east-1", BaseEndpoint: aws.String("http://localhost:9000")}
	s := NewS3StorageFromConfig(cfg, "bucket")
	require.NotNil(t, s.presigner)
	assert.Equal(t, "bucket", s.bucket)
}
