// Package archive uploads completed import source files to S3. Archival
// is best-effort: a failure is logged and never affects job status.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/customer-import/internal/pkg/logger"
)

// S3API is the subset of the S3 client the archiver uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads the source CSV of a completed job to an S3 bucket
// under imports/<jobID>/<filename>.
type S3Archiver struct {
	client S3API
	bucket string
}

// NewS3Archiver builds an archiver. With an accessKey it uses static
// credentials; otherwise the default AWS credential chain applies.
func NewS3Archiver(ctx context.Context, bucket, region, accessKey, secretKey string) (*S3Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Archiver{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// NewS3ArchiverWithClient builds an archiver with an injected client.
func NewS3ArchiverWithClient(client S3API, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

// Archive streams the file at filePath to S3. The file handle is passed
// directly to the SDK so multi-gigabyte sources are never buffered in
// memory.
func (a *S3Archiver) Archive(ctx context.Context, jobID, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		logger.Warn("archive: open source file", "job_id", jobID, "error", err.Error())
		return fmt.Errorf("archive open %s: %w", filePath, err)
	}
	defer f.Close()

	key := fmt.Sprintf("imports/%s/%s", jobID, filepath.Base(filePath))
	started := time.Now()
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		logger.Warn("archive: upload failed", "job_id", jobID, "key", key, "error", err.Error())
		return fmt.Errorf("archive upload %s: %w", key, err)
	}
	logger.Info("archive: uploaded source file", "job_id", jobID, "key", key,
		"elapsed_ms", time.Since(started).Milliseconds())
	return nil
}

// Noop is the archiver used when no bucket is configured.
type Noop struct{}

// Archive does nothing.
func (Noop) Archive(ctx context.Context, jobID, filePath string) error { return nil }
