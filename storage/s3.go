package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"idx_sync/config"
	"idx_sync/models"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ExtractArchive copies the extract files a run consumed to S3-compatible
// storage, one prefix per run.
type ExtractArchive struct {
	client objectPutter
	bucket string
}

func NewExtractArchive(ctx context.Context, cfg config.ArchiveConfig) (*ExtractArchive, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &ExtractArchive{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// ArchiveKey is the object key an extract file is stored under for run
func ArchiveKey(run *models.SyncRun, file string) string {
	return path.Join(
		run.Env,
		run.StartedAt.UTC().Format("2006/01/02"),
		run.ID.String(),
		filepath.Base(file),
	)
}

// Archive uploads every file in paths and returns the keys written. It stops
// at the first failure.
func (a *ExtractArchive) Archive(ctx context.Context, run *models.SyncRun, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		key := ArchiveKey(run, p)
		if err := a.upload(ctx, key, p); err != nil {
			return keys, fmt.Errorf("archive %s: %w", filepath.Base(p), err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (a *ExtractArchive) upload(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}
