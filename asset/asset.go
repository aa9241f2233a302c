// Package asset removes externally stored record assets, such as
// billboard images, by their public id.
package asset

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Remover deletes one asset.
type Remover interface {
	RemoveAsset(ctx context.Context, publicID string) error
}

// RemoverFunc adapts a function to a Remover.
type RemoverFunc func(ctx context.Context, publicID string) error

// RemoveAsset calls f.
func (f RemoverFunc) RemoveAsset(ctx context.Context, publicID string) error {
	return f(ctx, publicID)
}

// APIClient is the subset of resource.Client used by HTTPRemover.
type APIClient interface {
	DeleteAsset(ctx context.Context, publicID string) error
}

// HTTPRemover deletes assets through the admin API's asset endpoint.
type HTTPRemover struct {
	client APIClient
}

// NewHTTPRemover returns a remover backed by the admin API.
func NewHTTPRemover(client APIClient) *HTTPRemover {
	return &HTTPRemover{client: client}
}

// RemoveAsset calls DELETE /api/cloudinary.
func (r *HTTPRemover) RemoveAsset(ctx context.Context, publicID string) error {
	return r.client.DeleteAsset(ctx, publicID)
}

// S3API is the subset of the S3 client used by S3Remover.
type S3API interface {
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds the bucket settings for S3Remover.
type S3Config struct {
	Region string
	Bucket string
	Prefix string
	// Endpoint targets an S3-compatible service; it enables path-style
	// addressing.
	Endpoint string
	// AccessKeyID and SecretAccessKey replace the default credential
	// chain when both are set.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Remover deletes assets stored directly in an S3 bucket. The public id
// is the object key relative to Prefix.
type S3Remover struct {
	Client S3API
	Bucket string
	Prefix string
}

// NewS3 loads the default AWS configuration for cfg.Region.
func NewS3(ctx context.Context, cfg S3Config) (*S3Remover, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("asset: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Remover{
		Client: client,
		Bucket: cfg.Bucket,
		Prefix: cfg.Prefix,
	}, nil
}

// Key returns the object key for publicID.
func (r *S3Remover) Key(publicID string) string {
	key := strings.TrimLeft(publicID, "/")
	if p := strings.Trim(r.Prefix, "/"); p != "" && !strings.HasPrefix(key, p+"/") {
		key = p + "/" + key
	}
	return key
}

// RemoveAsset deletes the object. S3 reports success for missing keys, so
// removing an already removed asset is not an error.
func (r *S3Remover) RemoveAsset(ctx context.Context, publicID string) error {
	if publicID == "" {
		return fmt.Errorf("asset: empty public id")
	}
	_, err := r.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(r.Key(publicID)),
	})
	if err != nil {
		return fmt.Errorf("asset: delete s3://%s/%s: %w", r.Bucket, r.Key(publicID), err)
	}
	return nil
}

func (r *S3Remover) String() string { return fmt.Sprintf("s3(%s/%s)", r.Bucket, r.Prefix) }
