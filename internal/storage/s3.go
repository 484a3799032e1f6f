package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/previewvault/backend/internal/common"
)

// s3API is the subset of *s3.Client used by s3Storage
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Config holds settings for an S3 compatible bucket (AWS, R2, ...)
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
	UsePathStyle    bool
}

// s3Storage implements media storage on an S3 compatible bucket
type s3Storage struct {
	client    s3API
	bucket    string
	publicURL string
}

// NewS3Storage creates an S3 backed storage from cfg
func NewS3Storage(ctx context.Context, cfg S3Config) (*s3Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Storage(client, cfg.Bucket, cfg.PublicURL), nil
}

func newS3Storage(client s3API, bucket, publicURL string) *s3Storage {
	return &s3Storage{client: client, bucket: bucket, publicURL: publicURL}
}

// Put uploads r as namespace/name and returns its public locator
func (s *s3Storage) Put(ctx context.Context, namespace, name string, r io.Reader, size int64, contentType string) (string, error) {
	key, err := ObjectKey(namespace, name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStore, err)
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("%w: put object %s: %w", common.ErrStore, key, err)
	}

	return joinURL(s.publicURL, key), nil
}

// DeleteNamespace removes every object under the namespace prefix
func (s *s3Storage) DeleteNamespace(ctx context.Context, namespace string) error {
	if !isPlainName(namespace) {
		return fmt.Errorf("%w: %q", ErrInvalidName, namespace)
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(namespace + "/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}
		if len(out.Errors) > 0 {
			return fmt.Errorf("failed to delete %d objects, first: %s", len(out.Errors), aws.ToString(out.Errors[0].Message))
		}
	}

	return nil
}
