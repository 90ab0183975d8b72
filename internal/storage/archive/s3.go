package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds S3 connection configuration
type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"-"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// S3Storage implements Storage for S3-compatible backends
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 creates a new S3 storage client
func NewS3(cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: s3 requires a bucket")
	}

	opts := s3.Options{
		Region: cfg.Region,
	}
	if cfg.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true // MinIO and most S3-compatible services
	}

	return &S3Storage{
		client: s3.New(opts),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *S3Storage) key(path string) string {
	path = strings.TrimPrefix(path, "/")
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

func (s *S3Storage) Write(ctx context.Context, path string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(path)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(path)),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", path, err)
	}
	return nil
}

func (s *S3Storage) Read(ctx context.Context, path string) ([]byte, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s: %w", path, err)
	}
	defer output.Body.Close()
	return io.ReadAll(output.Body)
}

func (s *S3Storage) List(ctx context.Context, prefix string) ([]string, error) {
	paths := []string{}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			paths = append(paths, s.relative(aws.ToString(obj.Key)))
		}
	}

	return paths, nil
}

func (s *S3Storage) relative(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.prefix+"/")
}

func (s *S3Storage) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", path, err)
	}
	return nil
}

func (s *S3Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head %s: %w", path, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

func contentType(path string) string {
	switch {
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	case strings.HasSuffix(path, ".csv"):
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
