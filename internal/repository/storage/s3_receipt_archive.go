package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	cfg "github.com/dafibh/budgetbook/budgetbook-backend/internal/config"
	"github.com/rs/zerolog/log"
)

// objectAPI is the part of *s3.Client the archive calls
type objectAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ReceiptArchive stores receipt images in a private bucket and hands out
// presigned GET URLs for them
type S3ReceiptArchive struct {
	client  objectAPI
	presign func(ctx context.Context, key string, expiry time.Duration) (string, error)
	bucket  string
	expiry  time.Duration
}

// NewS3ReceiptArchive creates the archive and makes sure the bucket exists
func NewS3ReceiptArchive(ctx context.Context, s3cfg cfg.S3Config) (*S3ReceiptArchive, error) {
	// Build AWS config options
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3cfg.Region),
	}

	// Add credentials if provided
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3cfg.AccessKeyID,
				s3cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Optional endpoint override for MinIO/LocalStack
	var client *s3.Client
	if s3cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	presignClient := s3.NewPresignClient(client)
	archive := newS3ReceiptArchive(client, s3cfg.Bucket, s3cfg.URLExpiry)
	archive.presign = func(ctx context.Context, key string, expiry time.Duration) (string, error) {
		req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s3cfg.Bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(expiry))
		if err != nil {
			return "", err
		}
		return req.URL, nil
	}

	if err := archive.ensureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info().Str("bucket", s3cfg.Bucket).Msg("Receipt archive enabled")
	return archive, nil
}

func newS3ReceiptArchive(client objectAPI, bucket string, expiry time.Duration) *S3ReceiptArchive {
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &S3ReceiptArchive{client: client, bucket: bucket, expiry: expiry}
}

// ensureBucket creates the bucket if it doesn't exist. The bucket stays private.
func (a *S3ReceiptArchive) ensureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket (may be permission denied): %w", err)
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload stores the image under key and returns a presigned URL for it, or
// the key itself when presigning is unavailable
func (a *S3ReceiptArchive) Upload(ctx context.Context, key string, data io.Reader, contentType string, size int64) (string, error) {
	var body io.Reader = data
	if size < 0 {
		buf, err := io.ReadAll(data)
		if err != nil {
			return "", fmt.Errorf("failed to read data: %w", err)
		}
		size = int64(len(buf))
		body = bytes.NewReader(buf)
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	if a.presign == nil {
		return key, nil
	}
	url, err := a.presign(ctx, key, a.expiry)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to presign receipt URL")
		return key, nil
	}
	return url, nil
}
