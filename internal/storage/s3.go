package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	defaultUploadExpiry   = 15 * time.Minute
	defaultDownloadExpiry = time.Hour
)

// ErrUnsupportedMediaType is returned for uploads that are not images or videos
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// MediaStoreConfig holds configuration for MediaStore
type MediaStoreConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
	UploadExpiry    time.Duration
	DownloadExpiry  time.Duration
}

// MediaStore presigns FAQ media transfers against S3-compatible storage
type MediaStore struct {
	client         *s3.Client
	presignClient  *s3.PresignClient
	bucket         string
	uploadExpiry   time.Duration
	downloadExpiry time.Duration
}

// NewMediaStore creates a MediaStore with the given configuration
func NewMediaStore(ctx context.Context, cfg MediaStoreConfig) (*MediaStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	store := &MediaStore{
		client:         client,
		presignClient:  s3.NewPresignClient(client),
		bucket:         cfg.Bucket,
		uploadExpiry:   cfg.UploadExpiry,
		downloadExpiry: cfg.DownloadExpiry,
	}
	if store.uploadExpiry <= 0 {
		store.uploadExpiry = defaultUploadExpiry
	}
	if store.downloadExpiry <= 0 {
		store.downloadExpiry = defaultDownloadExpiry
	}
	return store, nil
}

// IsSupportedMediaType reports whether FAQ entries may carry this content type
func IsSupportedMediaType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/")
}

// GenerateUploadURL presigns a PUT for a media object
func (m *MediaStore) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	if !IsSupportedMediaType(contentType) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, contentType)
	}

	presigned, err := m.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(m.uploadExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return presigned.URL, nil
}

// GenerateDownloadURL presigns a GET the answer widget can load directly
func (m *MediaStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	presigned, err := m.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(m.downloadExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}

	return presigned.URL, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (m *MediaStore) EnsureBucket(ctx context.Context) error {
	_, err := m.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(m.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = m.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(m.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}
