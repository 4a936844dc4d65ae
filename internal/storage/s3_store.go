package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"postdesk/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// S3Store talks to any S3 compatible endpoint (garage, minio, R2...). One
// client serves every bucket, the bucket is chosen per call.
type S3Store struct {
	client     *s3.Client
	publicBase string
	tracer     trace.Tracer
}

var _ BlobStore = (*S3Store)(nil)

func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	if _, err := url.Parse(cfg.PublicBaseURL); err != nil {
		return nil, fmt.Errorf("invalid public base url: %w", err)
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		),
		UsePathStyle: true,
	})

	return &S3Store{
		client:     client,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		tracer:     otel.Tracer("postdesk/storage/s3"),
	}, nil
}

func (s *S3Store) StoreObject(ctx context.Context, bucket, key string, body io.ReadSeeker, contentType string) (string, error) {
	key, err := cleanObjectKey(key)
	if err != nil {
		return "", err
	}
	if bucket == "" {
		return "", ErrInvalidBucket
	}

	ctx, span := s.tracer.Start(ctx, "S3.StoreObject", trace.WithAttributes(
		attribute.String("s3.bucket", bucket),
		attribute.String("s3.key", key),
	))
	defer span.End()

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}

	return key, nil
}

func (s *S3Store) PublicURLFor(bucket, path string) string {
	return publicURL(s.publicBase, bucket, path)
}

func (s *S3Store) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	key, err := cleanObjectKey(key)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "S3.Open", trace.WithAttributes(attribute.String("s3.key", key)))

	objOutput, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		span.RecordError(err)
		span.End()
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, err
	}

	return &spanClosingReader{
		ReadCloser: objOutput.Body,
		span:       span,
	}, nil
}

func (s *S3Store) Exists(ctx context.Context, bucket, key string) bool {
	key, err := cleanObjectKey(key)
	if err != nil {
		return false
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	return err == nil
}

type spanClosingReader struct {
	io.ReadCloser
	span trace.Span
}

func (r *spanClosingReader) Close() error {
	r.span.End()
	return r.ReadCloser.Close()
}

// cleanObjectKey rejects keys that would escape the bucket root once mapped onto a filesystem.
func cleanObjectKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

func publicURL(base, bucket, path string) string {
	joined, err := url.JoinPath(base, bucket, path)
	if err != nil {
		return base + "/" + bucket + "/" + path
	}
	return joined
}
