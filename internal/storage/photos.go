package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Config contains S3 settings for testimonial photo storage. Endpoint
// and path style cover S3-compatible services like MinIO in development.
type Config struct {
	Bucket         string `env:"S3_BUCKET,required"`
	Region         string `env:"S3_REGION" envDefault:"eu-central-1"`
	AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"S3_SECRET_KEY"`
	Endpoint       string `env:"S3_ENDPOINT"`
	BaseURL        string `env:"S3_BASE_URL"`
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
}

// S3Client is the subset of the AWS S3 client the photo store uses.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// MaxPhotoSize caps author photo uploads at 5 MiB.
const MaxPhotoSize = 5 << 20

// photoExtensions maps accepted MIME types to object key extensions.
var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// PhotoStore uploads testimonial author photos to S3 and returns their
// public URLs. Objects are keyed by tenant and testimonial so a tenant
// wipe can delete by prefix.
type PhotoStore struct {
	client  S3Client
	bucket  string
	baseURL string
}

// Option configures the photo store.
type Option func(*options)

type options struct {
	client S3Client
}

// WithClient sets a pre-configured S3 client. Used in tests.
func WithClient(client S3Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// NewPhotoStore creates an S3-backed photo store.
func NewPhotoStore(ctx context.Context, cfg Config, opts ...Option) (*PhotoStore, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		awsOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadConfig, err)
		}
		client = s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
		})
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	baseURL = strings.TrimSuffix(baseURL, "/") + "/"

	return &PhotoStore{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

// Upload stores an author photo and returns its public URL.
func (p *PhotoStore) Upload(ctx context.Context, tenantID, testimonialID uuid.UUID, data []byte, contentType string) (string, error) {
	ext, ok := photoExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMIMEType, contentType)
	}
	if len(data) > MaxPhotoSize {
		return "", fmt.Errorf("%w: %d bytes", ErrPhotoTooLarge, len(data))
	}

	key := photoKey(tenantID, testimonialID, ext)
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Join(ErrUploadFailed, err)
	}

	return p.baseURL + key, nil
}

// Delete removes a previously uploaded photo by its public URL. Unknown
// URLs are ignored so cleanup never blocks testimonial deletion.
func (p *PhotoStore) Delete(ctx context.Context, photoURL string) error {
	key, ok := strings.CutPrefix(photoURL, p.baseURL)
	if !ok || key == "" {
		return nil
	}
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Join(ErrDeleteFailed, err)
	}
	return nil
}

func photoKey(tenantID, testimonialID uuid.UUID, ext string) string {
	return fmt.Sprintf("tenants/%s/testimonials/%s.%s", tenantID, testimonialID, ext)
}
