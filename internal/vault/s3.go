package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"aurum/internal/backup"
)

// S3Vault replicates artifacts to an S3 bucket. Objects are keyed as
// <prefix>/<filename>.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// S3Options configures the S3 vault. AccessKeyID and SecretAccessKey are
// optional; when empty the SDK's default credential chain is used
// (environment, shared config, instance role).
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // for S3-compatible stores, empty for AWS
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Vault creates an S3 vault for the given bucket.
func NewS3Vault(name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Vault{
		name:     name,
		bucket:   opts.Bucket,
		prefix:   opts.Prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (v *S3Vault) key(filename string) string {
	if v.prefix == "" {
		return filename
	}
	return path.Join(v.prefix, filename)
}

// PutArtifact uploads an artifact's bytes under its filename. Uploads are
// idempotent: re-uploading an existing key overwrites it with identical
// content.
func (v *S3Vault) PutArtifact(filename string, r io.Reader, size int64) error {
	_, err := v.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(v.bucket),
		Key:           aws.String(v.key(filename)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("uploading artifact %s: %w", filename, err)
	}
	return nil
}

// GetArtifact downloads an artifact's bytes by filename and writes them to w.
func (v *S3Vault) GetArtifact(filename string, w io.Writer) error {
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(filename)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("artifact not found: %s", filename)
		}
		return fmt.Errorf("fetching artifact %s: %w", filename, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading artifact %s: %w", filename, err)
	}
	return nil
}

// ValidateSetup verifies the bucket exists and is reachable with the
// configured credentials.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

// Compile-time check that S3Vault implements backup.Vault
var _ backup.Vault = (*S3Vault)(nil)
