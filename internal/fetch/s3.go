package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/qurandl/internal/queue"
)

// S3API is the part of the S3 client the executor needs.
type S3API interface {
	manager.DownloadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Executor downloads s3://bucket/key locators, typically private mirrors
// of the recitation archives.
type S3Executor struct {
	profile string

	mu     sync.Mutex
	client S3API
}

func NewS3Executor(profile string) *S3Executor {
	return &S3Executor{profile: profile}
}

// NewS3ExecutorWithClient uses an existing client instead of loading the
// shared AWS configuration.
func NewS3ExecutorWithClient(client S3API) *S3Executor {
	return &S3Executor{client: client}
}

func (e *S3Executor) getClient(ctx context.Context) (S3API, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	opts := []func(*config.LoadOptions) error{config.WithRetryMode(aws.RetryModeAdaptive)}
	if e.profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(e.profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %v", err)
	}
	e.client = s3.NewFromConfig(cfg)
	return e.client, nil
}

func (e *S3Executor) Execute(ctx context.Context, task queue.Task, progress queue.ProgressFunc) error {
	bucket, key, err := ParseS3URL(task.URL)
	if err != nil {
		return err
	}
	client, err := e.getClient(ctx)
	if err != nil {
		return err
	}
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error accessing S3 object: %w", err)
	}
	total := aws.ToInt64(head.ContentLength)

	tempPath, err := prepare(task.Dest)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		discard(tempPath)
		return fmt.Errorf("error creating output file: %w", err)
	}

	progressCh, finish := trackProgress(progress, total)
	downloader := manager.NewDownloader(client)
	n, err := downloader.Download(ctx, &progressWriterAt{w: file, progressCh: progressCh}, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	finish(err == nil)
	closeErr := file.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("error closing output file: %w", closeErr)
	}
	if err != nil {
		discard(tempPath)
		return fmt.Errorf("error getting object: %w", err)
	}
	if err := finalize(tempPath, task.Dest); err != nil {
		return err
	}
	log.Debug().Str("op", "fetch/s3").Int64("bytes", n).Msgf("downloaded s3://%s/%s", bucket, key)
	return nil
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(raw string) (string, string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URL: %v", err)
	}
	if parsed.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsed.Scheme)
	}
	key := strings.TrimPrefix(parsed.Path, "/")
	if parsed.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q, expected s3://bucket/key", raw)
	}
	return parsed.Host, key, nil
}

type progressWriterAt struct {
	w          *os.File
	progressCh chan<- int64
}

func (p *progressWriterAt) WriteAt(b []byte, off int64) (int, error) {
	n, err := p.w.WriteAt(b, off)
	if n > 0 {
		p.progressCh <- int64(n)
	}
	return n, err
}
