package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/umkm/backend/internal/infrastructure/config"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, params)
	return &s3.HeadBucketOutput{}, args.Error(0)
}

func (m *mockS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, params)
	return &s3.CreateBucketOutput{}, args.Error(0)
}

func (m *mockS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	return &s3.HeadObjectOutput{}, args.Error(0)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

type mockPresigner struct {
	mock.Mock
}

func (m *mockPresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, params)
	if req := args.Get(0); req != nil {
		return req.(*v4.PresignedHTTPRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, params)
	if req := args.Get(0); req != nil {
		return req.(*v4.PresignedHTTPRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func newMockedStorage(t *testing.T) (*S3ObjectStorage, *mockS3, *mockPresigner) {
	t.Helper()
	client := &mockS3{}
	presigner := &mockPresigner{}
	s, err := NewS3ObjectStorage(&config.StorageConfig{Bucket: "docs"}, WithClients(client, presigner))
	require.NoError(t, err)
	return s, client, presigner
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{Bucket: "docs", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{Bucket: "docs", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates storage", func(t *testing.T) {
		s, err := NewS3ObjectStorage(&config.StorageConfig{
			Bucket:            "docs",
			AccessKey:         "k",
			SecretKey:         "s",
			Region:            "ap-southeast-3",
			Endpoint:          "localhost:9000",
			UsePathStyle:      true,
			PresignExpiration: 10 * time.Minute,
		})
		require.NoError(t, err)
		assert.Equal(t, "docs", s.Bucket())
		assert.Equal(t, 10*time.Minute, s.presignExpiration)
	})

	t.Run("default presign expiration is 15 minutes", func(t *testing.T) {
		s, _, _ := newMockedStorage(t)
		assert.Equal(t, 15*time.Minute, s.presignExpiration)
	})

	t.Run("WithPresignExpiration overrides config", func(t *testing.T) {
		s, err := NewS3ObjectStorage(&config.StorageConfig{Bucket: "docs"},
			WithClients(&mockS3{}, &mockPresigner{}), WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, s.presignExpiration)
	})
}

func TestS3ObjectStorage_GenerateUploadURL(t *testing.T) {
	s, _, presigner := newMockedStorage(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	presigner.On("PresignPutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "docs" && *in.Key == "licenses/a/b/c.pdf" && *in.ContentType == "application/pdf"
	})).Return(&v4.PresignedHTTPRequest{URL: "https://s3.test/docs/licenses/a/b/c.pdf?sig"}, nil)

	url, expiresAt, err := s.GenerateUploadURL(context.Background(), "licenses/a/b/c.pdf", "application/pdf", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://s3.test/docs/"))
	assert.Equal(t, now.Add(15*time.Minute), expiresAt)

	_, _, err = s.GenerateUploadURL(context.Background(), "", "application/pdf", time.Minute)
	assert.ErrorIs(t, err, errEmptyKey)
}

func TestS3ObjectStorage_GenerateDownloadURL(t *testing.T) {
	s, _, presigner := newMockedStorage(t)

	presigner.On("PresignGetObject", mock.Anything, mock.Anything).
		Return(nil, errors.New("signing failed")).Once()
	_, _, err := s.GenerateDownloadURL(context.Background(), "k", time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate download URL")

	presigner.On("PresignGetObject", mock.Anything, mock.Anything).
		Return(&v4.PresignedHTTPRequest{URL: "https://s3.test/docs/k"}, nil).Once()
	url, expiresAt, err := s.GenerateDownloadURL(context.Background(), "k", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.test/docs/k", url)
	assert.True(t, expiresAt.After(time.Now().Add(59*time.Minute)))
}

func TestS3ObjectStorage_ObjectExists(t *testing.T) {
	s, client, _ := newMockedStorage(t)
	ctx := context.Background()

	client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool { return *in.Key == "present" })).Return(nil)
	client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool { return *in.Key == "missing" })).Return(&types.NotFound{})
	client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool { return *in.Key == "minio" })).Return(errors.New("api error NoSuchKey"))
	client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool { return *in.Key == "broken" })).Return(errors.New("connection refused"))

	exists, err := s.ObjectExists(ctx, "present")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ObjectExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.ObjectExists(ctx, "minio")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.ObjectExists(ctx, "broken")
	assert.Error(t, err)

	_, err = s.ObjectExists(ctx, "")
	assert.ErrorIs(t, err, errEmptyKey)
}

func TestS3ObjectStorage_DeleteObject(t *testing.T) {
	s, client, _ := newMockedStorage(t)
	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Bucket == "docs" && *in.Key == "k"
	})).Return(nil).Once()

	require.NoError(t, s.DeleteObject(context.Background(), "k"))
	assert.ErrorIs(t, s.DeleteObject(context.Background(), ""), errEmptyKey)
	client.AssertExpectations(t)
}

func TestS3ObjectStorage_EnsureBucket(t *testing.T) {
	t.Run("existing bucket", func(t *testing.T) {
		s, client, _ := newMockedStorage(t)
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, s.EnsureBucket(context.Background()))
		client.AssertNotCalled(t, "CreateBucket", mock.Anything, mock.Anything)
	})

	t.Run("creates missing bucket", func(t *testing.T) {
		s, client, _ := newMockedStorage(t)
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(&types.NoSuchBucket{})
		client.On("CreateBucket", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, s.EnsureBucket(context.Background()))
		client.AssertExpectations(t)
	})

	t.Run("lost creation race", func(t *testing.T) {
		s, client, _ := newMockedStorage(t)
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(&types.NotFound{})
		client.On("CreateBucket", mock.Anything, mock.Anything).Return(&types.BucketAlreadyOwnedByYou{})

		require.NoError(t, s.EnsureBucket(context.Background()))
	})

	t.Run("access denied", func(t *testing.T) {
		s, client, _ := newMockedStorage(t)
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(errors.New("AccessDenied"))

		assert.Error(t, s.EnsureBucket(context.Background()))
	})
}
