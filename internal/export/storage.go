package export

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/alekLukanen/errs"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStorageOptions configures the S3-compatible upload target.
// With an empty AccessKey the default AWS credential chain is used.
type ObjectStorageOptions struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Uploader stores exported files. *ObjectStorage satisfies it.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body []byte) error
}

// ObjectStorage uploads exported files to an S3-compatible bucket.
type ObjectStorage struct {
	logger *slog.Logger
	client *s3.Client
}

// NewObjectStorage builds an S3 client from options.
func NewObjectStorage(ctx context.Context, logger *slog.Logger, options ObjectStorageOptions) (*ObjectStorage, error) {
	configFuncs := make([]func(*config.LoadOptions) error, 0, 2)
	if options.Region != "" {
		configFuncs = append(configFuncs, config.WithRegion(options.Region))
	}
	if options.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(options.AccessKey, options.SecretKey, "")
		configFuncs = append(configFuncs, config.WithCredentialsProvider(creds))
	}

	s3Config, err := config.LoadDefaultConfig(ctx, configFuncs...)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		if options.Endpoint != "" {
			o.BaseEndpoint = aws.String(options.Endpoint)
		}
		o.UsePathStyle = options.UsePathStyle
	})

	return &ObjectStorage{logger: logger, client: client}, nil
}

// Upload puts body at bucket/key using the multipart upload manager.
func (obj *ObjectStorage) Upload(ctx context.Context, bucket, key string, body []byte) error {
	obj.logger.Info("uploading object",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.Int("num_bytes", len(body)),
	)

	uploader := manager.NewUploader(obj.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return errs.Wrap(err)
	}
	return nil
}

// ObjectKey joins prefix and the file name of localPath.
func ObjectKey(prefix, localPath string) string {
	name := path.Base(strings.ReplaceAll(localPath, "\\", "/"))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
