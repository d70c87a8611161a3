package artifact

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds the configuration for S3 storage.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// S3Store combines HTTP download with S3 upload. It satisfies Store.
type S3Store struct {
	*Downloader
	client *s3.Client
	bucket string
	region string
}

// NewS3Store creates an S3Store. downloadTimeout bounds source fetches.
func NewS3Store(cfg S3Config, downloadTimeout time.Duration) (*S3Store, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		Downloader: NewDownloader(downloadTimeout),
		client:     s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
	}, nil
}

// Upload puts the local file under <folder>/<uuid><ext> and returns the
// public URL.
func (s *S3Store) Upload(ctx context.Context, localPath, folder string, isImage bool) (string, error) {
	f, err := os.Open(localPath) // #nosec G304 - localPath is scratch-allocated
	if err != nil {
		return "", fmt.Errorf("open upload source: %w", err)
	}
	defer func() { _ = f.Close() }()

	ext := uploadExt(localPath, isImage)
	key := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeByExt(ext)),
	})
	if err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// LocalStore is a download-only store for deployments without durable
// storage configured. Uploads fail with ErrUploadNotConfigured.
type LocalStore struct {
	*Downloader
}

// NewLocalStore creates a LocalStore.
func NewLocalStore(downloadTimeout time.Duration) *LocalStore {
	return &LocalStore{Downloader: NewDownloader(downloadTimeout)}
}

// Upload is not supported by LocalStore.
func (s *LocalStore) Upload(_ context.Context, _, _ string, _ bool) (string, error) {
	return "", ErrUploadNotConfigured
}
